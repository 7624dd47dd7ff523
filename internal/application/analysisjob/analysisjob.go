// internal/application/analysisjob/analysisjob.go
//
// Application service for asynchronous long-document analysis.
//
// Functional positioning:
//   The API server submits a job (document stored in object storage, job
//   record in Redis, event on Kafka); the worker consumes the event, runs the
//   longdoc pipeline and stores the result next to the source document.
//
// Dependencies:
//   Depends on: domain/job, application/longdoc, infrastructure/{extract,
//   storage/minio, database/redis, messaging/kafka}, pkg/errors
//   Depended by: interfaces/http document handler, cmd/worker

package analysisjob

import (
	"context"
	"time"

	"github.com/turtacn/KeyIP-LongDoc/internal/domain/job"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// DocumentStore is the subset of the object store the job flow uses.
type DocumentStore interface {
	PutDocument(ctx context.Context, jobID, filename string, data []byte) (string, error)
	GetDocument(ctx context.Context, key string) ([]byte, error)
	PutResult(ctx context.Context, jobID string, result *document.ProcessedDocumentResult) (string, error)
	GetResult(ctx context.Context, jobID string) (*document.ProcessedDocumentResult, error)
}

// JobRecorder receives one observation per job that reaches a terminal state.
type JobRecorder interface {
	ObserveJob(status string, d time.Duration)
}

type nopJobRecorder struct{}

func (nopJobRecorder) ObserveJob(string, time.Duration) {}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// SubmitRequest carries exactly one document source: inline Text, uploaded
// Content with its Filename, or the ObjectKey of a document already stored.
type SubmitRequest struct {
	Text         string                `json:"text,omitempty"`
	Content      []byte                `json:"-"`
	Filename     string                `json:"filename,omitempty"`
	ObjectKey    string                `json:"object_key,omitempty"`
	AnalysisType document.AnalysisType `json:"analysis_type"`
	Options      document.Options      `json:"options"`
}

// JobStatus is a job record plus its result once completed.
type JobStatus struct {
	*job.Job
	Result *document.ProcessedDocumentResult `json:"result,omitempty"`
}

//Personal.AI order the ending
