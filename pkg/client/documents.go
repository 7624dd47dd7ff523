package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

const documentsPath = "/api/v1/documents"

// JobStatus is the lifecycle state of an asynchronous job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Done reports whether the job will not change again.
func (s JobStatus) Done() bool { return s == JobCompleted || s == JobFailed }

// Job is an asynchronous analysis job.  Result is set once the job has
// completed.
type Job struct {
	ID           string                            `json:"id"`
	Status       JobStatus                         `json:"status"`
	AnalysisType document.AnalysisType             `json:"analysis_type"`
	Options      document.Options                  `json:"options"`
	ObjectKey    string                            `json:"object_key"`
	Filename     string                            `json:"filename"`
	Error        string                            `json:"error,omitempty"`
	Summary      *document.ProcessingSummary       `json:"summary,omitempty"`
	Attempts     int                               `json:"attempts"`
	CreatedAt    time.Time                         `json:"created_at"`
	UpdatedAt    time.Time                         `json:"updated_at"`
	StartedAt    *time.Time                        `json:"started_at,omitempty"`
	CompletedAt  *time.Time                        `json:"completed_at,omitempty"`
	Result       *document.ProcessedDocumentResult `json:"result,omitempty"`
}

// SubmitJobRequest submits inline text or an already stored object.  Set
// exactly one of Text and ObjectKey.
type SubmitJobRequest struct {
	Text         string                `json:"text,omitempty"`
	ObjectKey    string                `json:"object_key,omitempty"`
	AnalysisType document.AnalysisType `json:"analysis_type"`
	Options      document.Options      `json:"options"`
}

// SubmitJobResponse acknowledges a queued job.
type SubmitJobResponse struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentsClient calls the /api/v1/documents endpoints.
type DocumentsClient struct {
	client *Client
}

// Segment splits text into segments without analysing them.
func (d *DocumentsClient) Segment(ctx context.Context, text string, opts document.Options) (*document.SegmentationResult, error) {
	body := struct {
		Text    string           `json:"text"`
		Options document.Options `json:"options"`
	}{text, opts}

	var out document.SegmentationResult
	if err := d.client.doJSON(ctx, http.MethodPost, documentsPath+"/segment", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Process runs the full pipeline synchronously.
func (d *DocumentsClient) Process(ctx context.Context, text string, analysisType document.AnalysisType, opts document.Options) (*document.ProcessedDocumentResult, error) {
	body := struct {
		Text         string                `json:"text"`
		AnalysisType document.AnalysisType `json:"analysis_type"`
		Options      document.Options      `json:"options"`
	}{text, analysisType, opts}

	var out document.ProcessedDocumentResult
	if err := d.client.doJSON(ctx, http.MethodPost, documentsPath+"/process", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload sends a file (pdf, docx, md, html or txt) and processes it
// synchronously.
func (d *DocumentsClient) Upload(ctx context.Context, filename string, r io.Reader, analysisType document.AnalysisType, opts document.Options) (*document.ProcessedDocumentResult, error) {
	req, err := multipartRequest(documentsPath+"/upload", filename, r, analysisType, opts)
	if err != nil {
		return nil, err
	}
	var out document.ProcessedDocumentResult
	if err := d.client.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitJob queues inline text or a stored object for asynchronous
// processing.
func (d *DocumentsClient) SubmitJob(ctx context.Context, req SubmitJobRequest) (*SubmitJobResponse, error) {
	if strings.TrimSpace(req.Text) == "" && req.ObjectKey == "" {
		return nil, errors.InvalidParam("one of Text or ObjectKey is required")
	}
	var out SubmitJobResponse
	if err := d.client.doJSON(ctx, http.MethodPost, documentsPath+"/jobs", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitFile uploads a file as an asynchronous job.
func (d *DocumentsClient) SubmitFile(ctx context.Context, filename string, r io.Reader, analysisType document.AnalysisType, opts document.Options) (*SubmitJobResponse, error) {
	req, err := multipartRequest(documentsPath+"/jobs", filename, r, analysisType, opts)
	if err != nil {
		return nil, err
	}
	var out SubmitJobResponse
	if err := d.client.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetJob returns a job, with its result once completed.
func (d *DocumentsClient) GetJob(ctx context.Context, id string) (*Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.InvalidParam("job id is required")
	}
	var out Job
	if err := d.client.doJSON(ctx, http.MethodGet, documentsPath+"/jobs/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListJobs returns up to limit recent jobs, newest first.
func (d *DocumentsClient) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	path := documentsPath + "/jobs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Jobs []Job `json:"jobs"`
	}
	if err := d.client.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// WaitJob polls GetJob every interval until the job is done or ctx ends.
func (d *DocumentsClient) WaitJob(ctx context.Context, id string, interval time.Duration) (*Job, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		j, err := d.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if j.Status.Done() {
			return j, nil
		}
		select {
		case <-ctx.Done():
			return j, ctx.Err()
		case <-ticker.C:
		}
	}
}

func multipartRequest(path, filename string, r io.Reader, analysisType document.AnalysisType, opts document.Options) (request, error) {
	if filename == "" {
		return request{}, errors.InvalidParam("filename is required")
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return request{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return request{}, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if analysisType != "" {
		if err := mw.WriteField("analysis_type", string(analysisType)); err != nil {
			return request{}, err
		}
	}
	if opts != (document.Options{}) {
		raw, err := json.Marshal(opts)
		if err != nil {
			return request{}, fmt.Errorf("failed to marshal options: %w", err)
		}
		if err := mw.WriteField("options", string(raw)); err != nil {
			return request{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return request{}, err
	}
	return request{
		method:      http.MethodPost,
		path:        path,
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}, nil
}

//Personal.AI order the ending
