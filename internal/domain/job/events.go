package job

import "github.com/turtacn/KeyIP-LongDoc/pkg/types/document"

// Event types carried in the Kafka envelope.
const (
	EventSubmitted = "longdoc.job.submitted"
	EventCompleted = "longdoc.job.completed"
)

// SubmittedPayload is published when a job is queued.
type SubmittedPayload struct {
	JobID        string                `json:"job_id"`
	AnalysisType document.AnalysisType `json:"analysis_type"`
	ObjectKey    string                `json:"object_key"`
	Filename     string                `json:"filename"`
}

// NewSubmittedPayload builds the payload for j.
func NewSubmittedPayload(j *Job) SubmittedPayload {
	return SubmittedPayload{
		JobID:        j.ID,
		AnalysisType: j.AnalysisType,
		ObjectKey:    j.ObjectKey,
		Filename:     j.Filename,
	}
}

// CompletedPayload is published when a job reaches a terminal state.
type CompletedPayload struct {
	JobID     string                      `json:"job_id"`
	Status    Status                      `json:"status"`
	ResultKey string                      `json:"result_key,omitempty"`
	Error     string                      `json:"error,omitempty"`
	Summary   *document.ProcessingSummary `json:"summary,omitempty"`
}

// NewCompletedPayload builds the payload for j.
func NewCompletedPayload(j *Job) CompletedPayload {
	return CompletedPayload{
		JobID:     j.ID,
		Status:    j.Status,
		ResultKey: j.ResultKey,
		Error:     j.Error,
		Summary:   j.Summary,
	}
}

//Personal.AI order the ending
