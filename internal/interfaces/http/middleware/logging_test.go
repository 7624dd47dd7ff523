package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-LongDoc/internal/testutil"
)

func statusHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte("body"))
	})
}

func TestRequestLogging_Levels(t *testing.T) {
	tests := []struct {
		name  string
		code  int
		level string
		msg   string
	}{
		{"ok", http.StatusOK, "info", "HTTP request completed"},
		{"client error", http.StatusUnprocessableEntity, "warn", "HTTP request completed with client error"},
		{"server error", http.StatusBadGateway, "error", "HTTP request completed with server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := testutil.NewMockLogger()
			handler := RequestLogging(log, DefaultLoggingConfig())(statusHandler(tt.code))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/documents/process", nil))

			assert.Equal(t, tt.code, w.Code)
			assert.True(t, log.HasMessage(tt.level, tt.msg))
			status, ok := log.FieldValue(tt.msg, "status")
			require.True(t, ok)
			assert.Equal(t, tt.code, status)
			bytes, _ := log.FieldValue(tt.msg, "bytes")
			assert.Equal(t, int64(4), bytes)
		})
	}
}

func TestRequestLogging_SlowRequest(t *testing.T) {
	log := testutil.NewMockLogger()
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
	})
	handler := RequestLogging(log, LoggingConfig{SlowThreshold: time.Millisecond})(slow)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.True(t, log.HasMessage("warn", "HTTP request completed (slow)"))
}

func TestRequestLogging_SkipPaths(t *testing.T) {
	log := testutil.NewMockLogger()
	handler := RequestLogging(log, DefaultLoggingConfig())(statusHandler(http.StatusOK))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Empty(t, log.GetMessages())
}

func TestRequestLogging_RouteAndRequestID(t *testing.T) {
	log := testutil.NewMockLogger()
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestLogging(log, DefaultLoggingConfig()))
	r.Get("/api/v1/documents/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/documents/jobs/job_1", nil))

	route, _ := log.FieldValue("HTTP request completed", "route")
	assert.Equal(t, "/api/v1/documents/jobs/{id}", route)
	reqID, _ := log.FieldValue("HTTP request completed", "request_id")
	assert.NotEmpty(t, reqID)
}

//Personal.AI order the ending
