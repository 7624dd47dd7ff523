// Phase 11 - File: internal/interfaces/http/handlers/document_handler.go
// 长文档分段 / 分析 HTTP Handler。
//
// * 功能定位：暴露 longdoc.Service 与异步作业服务
// * 路由（均位于 /api/v1/documents 下）：
//   - POST /segment     同步分段
//   - POST /process     同步分段 + 逐段分析 + 合并
//   - POST /upload      multipart 上传文件，抽取文本后同步处理
//   - POST /jobs        提交异步作业（JSON 或 multipart），返回 202
//   - GET  /jobs        最近作业列表
//   - GET  /jobs/{id}   作业状态，完成后附带结果
// * 业务逻辑：
//   - 请求体受 server.max_body_size 限制，超限返回 DOC_008
//   - 未配置 Kafka 时作业接口返回 503 JOB_004

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/KeyIP-LongDoc/internal/application/analysisjob"
	"github.com/turtacn/KeyIP-LongDoc/internal/application/longdoc"
	"github.com/turtacn/KeyIP-LongDoc/internal/domain/job"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/extract"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

const (
	defaultMaxBodyBytes = 20 << 20
	// multipart parts beyond this stay on disk until the request ends
	multipartMemory = 8 << 20
	defaultJobList  = 20
)

// JobService is the async job surface; *analysisjob.Submitter implements it.
type JobService interface {
	Submit(ctx context.Context, req analysisjob.SubmitRequest) (*job.Job, error)
	Get(ctx context.Context, id string) (*analysisjob.JobStatus, error)
	List(ctx context.Context, limit int) ([]*job.Job, error)
}

// SegmentRequest is the body of POST /segment.
type SegmentRequest struct {
	Text    string           `json:"text"`
	Options document.Options `json:"options"`
}

// ProcessRequest is the body of POST /process.
type ProcessRequest struct {
	Text         string                `json:"text"`
	AnalysisType document.AnalysisType `json:"analysis_type"`
	Options      document.Options      `json:"options"`
}

// SubmitJobRequest is the JSON body of POST /jobs.  Exactly one of Text and
// ObjectKey must be set.
type SubmitJobRequest struct {
	Text         string                `json:"text,omitempty"`
	ObjectKey    string                `json:"object_key,omitempty"`
	AnalysisType document.AnalysisType `json:"analysis_type"`
	Options      document.Options      `json:"options"`
}

// SubmitJobResponse is returned with 202 Accepted.
type SubmitJobResponse struct {
	JobID     string     `json:"job_id"`
	Status    job.Status `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// JobListResponse is the body of GET /jobs.
type JobListResponse struct {
	Jobs []*job.Job `json:"jobs"`
}

// DocumentHandler serves the document endpoints.
type DocumentHandler struct {
	svc          longdoc.Service
	jobs         JobService
	logger       logging.Logger
	maxBodyBytes int64
}

// NewDocumentHandler creates a DocumentHandler.  jobs may be nil, in which
// case the job endpoints answer 503.
func NewDocumentHandler(svc longdoc.Service, jobs JobService, logger logging.Logger, maxBodyBytes int64) *DocumentHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &DocumentHandler{svc: svc, jobs: jobs, logger: logger, maxBodyBytes: maxBodyBytes}
}

// RegisterRoutes mounts the handler on r.
func (h *DocumentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/segment", h.Segment)
	r.Post("/process", h.Process)
	r.Post("/upload", h.Upload)
	r.Post("/jobs", h.SubmitJob)
	r.Get("/jobs", h.ListJobs)
	r.Get("/jobs/{id}", h.GetJob)
}

// Segment handles POST /segment.
func (h *DocumentHandler) Segment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	var req SegmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	result, err := h.svc.SegmentDocument(r.Context(), req.Text, req.Options)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Process handles POST /process.
func (h *DocumentHandler) Process(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	var req ProcessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	result, err := h.svc.ProcessLongDocument(r.Context(), req.Text, req.AnalysisType, req.Options)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Upload handles POST /upload: multipart field "file" plus optional
// "analysis_type" and "options" (a JSON object).
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	up, err := h.readUpload(w, r)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	doc, err := extract.Extract(bytes.NewReader(up.content), up.filename)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}

	result, err := h.svc.ProcessLongDocument(r.Context(), doc.Text, up.analysisType, up.options)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if result.DocumentMetadata.PageCount == 0 {
		result.DocumentMetadata.PageCount = doc.PageCount
	}
	h.logger.Info("uploaded document processed",
		logging.String("filename", up.filename),
		logging.String("format", string(doc.Format)),
		logging.Int("segments", result.Summary.TotalSegments))
	writeJSON(w, http.StatusOK, result)
}

// SubmitJob handles POST /jobs.  A multipart body uploads a file, a JSON
// body carries inline text or an existing object key.
func (h *DocumentHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeAppError(w, r, h.logger, errJobsDisabled())
		return
	}

	var req analysisjob.SubmitRequest
	if isMultipart(r) {
		up, err := h.readUpload(w, r)
		if err != nil {
			writeAppError(w, r, h.logger, err)
			return
		}
		req = analysisjob.SubmitRequest{
			Content:      up.content,
			Filename:     up.filename,
			AnalysisType: up.analysisType,
			Options:      up.options,
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
		var body SubmitJobRequest
		if err := decodeJSON(r, &body); err != nil {
			writeAppError(w, r, h.logger, err)
			return
		}
		req = analysisjob.SubmitRequest{
			Text:         body.Text,
			ObjectKey:    body.ObjectKey,
			AnalysisType: body.AnalysisType,
			Options:      body.Options,
		}
	}

	j, err := h.jobs.Submit(r.Context(), req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", "/api/v1/documents/jobs/"+j.ID)
	writeJSON(w, http.StatusAccepted, SubmitJobResponse{JobID: j.ID, Status: j.Status, CreatedAt: j.CreatedAt})
}

// GetJob handles GET /jobs/{id}.
func (h *DocumentHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeAppError(w, r, h.logger, errJobsDisabled())
		return
	}
	status, err := h.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ListJobs handles GET /jobs?limit=N.
func (h *DocumentHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeAppError(w, r, h.logger, errJobsDisabled())
		return
	}
	jobs, err := h.jobs.List(r.Context(), parseLimit(r, defaultJobList))
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	writeJSON(w, http.StatusOK, JobListResponse{Jobs: jobs})
}

type upload struct {
	content      []byte
	filename     string
	analysisType document.AnalysisType
	options      document.Options
}

func (h *DocumentHandler) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if tooLarge(err) {
			return nil, errors.New(errors.ErrCodeDocumentTooLarge, "upload too large")
		}
		return nil, errors.InvalidParam("invalid multipart form").WithDetail(err.Error())
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errors.InvalidParam("multipart field \"file\" is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to read upload")
	}

	up := &upload{
		content:      data,
		filename:     header.Filename,
		analysisType: document.AnalysisType(strings.TrimSpace(r.FormValue("analysis_type"))),
	}
	if raw := strings.TrimSpace(r.FormValue("options")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &up.options); err != nil {
			return nil, errors.InvalidParam("options must be a JSON object").WithDetail(err.Error())
		}
	}
	if _, err := extract.ForFile(up.filename); err != nil {
		return nil, err
	}
	return up, nil
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

func errJobsDisabled() error {
	return errors.New(errors.ErrCodeJobsDisabled, "asynchronous jobs are not enabled on this server")
}

//Personal.AI order the ending
