package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	method, route string
	status        int
}

type recordingHTTP struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingHTTP) ObserveHTTPRequest(method, route string, statusCode int, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{method, route, statusCode})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	rec := &recordingHTTP{}
	r := chi.NewRouter()
	r.Use(Metrics(rec))
	r.Get("/api/v1/documents/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"job_1", "job_2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/documents/jobs/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, rec.obs, 3)
	assert.Equal(t, observation{"GET", "/api/v1/documents/jobs/{id}", 404}, rec.obs[0])
	assert.Equal(t, rec.obs[0], rec.obs[1])
	assert.Equal(t, observation{"GET", "unmatched", 404}, rec.obs[2])
}

func TestStatusRecorder_DefaultsToOK(t *testing.T) {
	w := httptest.NewRecorder()
	sr := newStatusRecorder(w)
	_, _ = sr.Write([]byte("hello"))
	sr.WriteHeader(http.StatusTeapot)

	assert.Equal(t, http.StatusOK, sr.status)
	assert.Equal(t, int64(5), sr.bytes)
}

//Personal.AI order the ending
