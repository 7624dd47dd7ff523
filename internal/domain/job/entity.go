// Package job models an asynchronous long-document analysis request and its
// lifecycle: queued → running → completed | failed.
package job

import (
	"fmt"
	"time"

	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/common"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// A running job may be restarted when its message is redelivered after a
// worker crash.
var allowedTransitions = map[Status][]Status{
	StatusQueued:  {StatusRunning, StatusFailed},
	StatusRunning: {StatusRunning, StatusCompleted, StatusFailed},
}

// Job is one asynchronous ProcessLongDocument run.  The source document and
// the result live in object storage under ObjectKey and ResultKey.
type Job struct {
	ID           string                      `json:"id"`
	Status       Status                      `json:"status"`
	AnalysisType document.AnalysisType       `json:"analysis_type"`
	Options      document.Options            `json:"options"`
	ObjectKey    string                      `json:"object_key"`
	Filename     string                      `json:"filename"`
	ResultKey    string                      `json:"result_key,omitempty"`
	Error        string                      `json:"error,omitempty"`
	Summary      *document.ProcessingSummary `json:"summary,omitempty"`
	Attempts     int                         `json:"attempts"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	StartedAt    *time.Time                  `json:"started_at,omitempty"`
	CompletedAt  *time.Time                  `json:"completed_at,omitempty"`
}

// NewJob validates the request fields and returns a queued job with a fresh
// "job-<uuid>" ID.  An empty analysis type defaults to general.
func NewJob(analysisType document.AnalysisType, opts document.Options, filename string) (*Job, error) {
	if analysisType == "" {
		analysisType = document.AnalysisGeneral
	}
	if !analysisType.IsValid() {
		return nil, errors.New(errors.ErrCodeInvalidOptions, fmt.Sprintf("unknown analysis type %q", analysisType))
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidOptions, "invalid processing options")
	}
	if filename == "" {
		return nil, errors.InvalidParam("filename must not be empty")
	}

	now := time.Now().UTC()
	return &Job{
		ID:           common.GenerateID("job"),
		Status:       StatusQueued,
		AnalysisType: analysisType,
		Options:      opts,
		Filename:     filename,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Start moves the job to running and counts the attempt.
func (j *Job) Start() error {
	if err := j.transition(StatusRunning); err != nil {
		return err
	}
	now := j.UpdatedAt
	j.StartedAt = &now
	j.Attempts++
	j.Error = ""
	return nil
}

// Complete records the stored result.
func (j *Job) Complete(resultKey string, summary document.ProcessingSummary) error {
	if err := j.transition(StatusCompleted); err != nil {
		return err
	}
	now := j.UpdatedAt
	j.CompletedAt = &now
	j.ResultKey = resultKey
	j.Summary = &summary
	return nil
}

// Fail records reason as the terminal error.
func (j *Job) Fail(reason string) error {
	if err := j.transition(StatusFailed); err != nil {
		return err
	}
	now := j.UpdatedAt
	j.CompletedAt = &now
	j.Error = reason
	return nil
}

func (j *Job) transition(to Status) error {
	for _, s := range allowedTransitions[j.Status] {
		if s == to {
			j.Status = to
			j.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return errors.New(errors.ErrCodeJobInvalidState,
		fmt.Sprintf("illegal job transition %q → %q for %s", j.Status, to, j.ID))
}

//Personal.AI order the ending
