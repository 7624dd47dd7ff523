package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-LongDoc/pkg/client"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

func TestSubmitCmd_UploadsFile(t *testing.T) {
	var gotFilename, gotType, gotOptions string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/documents/jobs", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, fh, err := r.FormFile("file")
		require.NoError(t, err)
		gotFilename = fh.Filename
		gotType = r.FormValue("analysis_type")
		gotOptions = r.FormValue("options")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(client.SubmitJobResponse{
			JobID: "job-42", Status: client.JobQueued, CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		})
	}))
	defer srv.Close()

	path := writeTempFile(t, "office-action.txt", officeActionText)
	out, _, err := runCLI(t, nil, "", "submit", path, "--server", srv.URL, "--type", "office_action", "--no-context")
	require.NoError(t, err)

	assert.Equal(t, "office-action.txt", gotFilename)
	assert.Equal(t, "office_action", gotType)
	assert.JSONEq(t, `{"preserve_context":false}`, gotOptions)
	assert.Equal(t, "Job job-42 queued at 2026-01-02T03:04:05Z\n", out)
}

func TestSubmitCmd_Wait(t *testing.T) {
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/documents/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(client.SubmitJobResponse{JobID: "job-7", Status: client.JobQueued})
	})
	mux.HandleFunc("/api/v1/documents/jobs/job-7", func(w http.ResponseWriter, r *http.Request) {
		j := client.Job{ID: "job-7", Status: client.JobRunning, AnalysisType: document.AnalysisOfficeAction}
		if atomic.AddInt32(&polls, 1) >= 2 {
			j.Status = client.JobCompleted
			j.Result = &document.ProcessedDocumentResult{
				Summary: document.ProcessingSummary{TotalSegments: 4, ProcessedSegments: 4},
			}
		}
		_ = json.NewEncoder(w).Encode(j)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, _, err := runCLI(t, nil, officeActionText, "submit", "-", "--server", srv.URL, "--wait", "--interval", "10ms")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&polls), int32(2))
	assert.Contains(t, out, "Status:   completed")
	assert.Contains(t, out, "Segments: 4 processed, 0 failed, 4 total")
}

func TestSubmitCmd_InvalidType(t *testing.T) {
	path := writeTempFile(t, "oa.txt", officeActionText)
	_, _, err := runCLI(t, nil, "", "submit", path, "--type", "bogus", "--server", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown analysis type")
}

func TestStatusCmd_Failed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/documents/jobs/job-9", r.URL.Path)
		_ = json.NewEncoder(w).Encode(client.Job{
			ID: "job-9", Status: client.JobFailed, AnalysisType: document.AnalysisPatent,
			Filename: "claims.pdf", Attempts: 3, Error: "document is empty",
			Summary: &document.ProcessingSummary{TotalSegments: 0},
		})
	}))
	defer srv.Close()

	out, _, err := runCLI(t, nil, "", "status", "job-9", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Job:      job-9")
	assert.Contains(t, out, "Status:   failed")
	assert.Contains(t, out, "File:     claims.pdf")
	assert.Contains(t, out, "Attempts: 3")
	assert.Contains(t, out, "Error:    document is empty")
}

func TestStatusCmd_NotFoundJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"JOB_001","message":"analysis job not found"}`))
	}))
	defer srv.Close()

	_, _, err := runCLI(t, nil, "", "status", "nope", "--server", srv.URL, "-o", "json")
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "JOB_001", apiErr.Code)
}

//Personal.AI order the ending
