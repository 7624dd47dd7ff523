package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

func defaultConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "longdoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(config.LogConfig{Level: "debug", Format: "console", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNewMetrics_Disabled(t *testing.T) {
	m, err := NewMetrics(config.MetricsConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.False(t, m.Enabled())
	assert.Nil(t, m.Collector)
}

func TestNewMetrics_Enabled(t *testing.T) {
	m, err := NewMetrics(config.MetricsConfig{Enabled: true, Namespace: "longdoc_test"}, logging.NewNopLogger())
	require.NoError(t, err)
	require.True(t, m.Enabled())

	m.LongDoc.SetComponentHealth("redis", true)

	rec := httptest.NewRecorder()
	m.Collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "longdoc_test_health_check_status")
}

func TestOpen_NothingEnabled(t *testing.T) {
	infra, err := Open(context.Background(), defaultConfig(), logging.NewNopLogger())
	require.NoError(t, err)
	defer infra.Close()

	assert.Nil(t, infra.Redis)
	assert.Nil(t, infra.MinIO)
	assert.Nil(t, infra.Producer)
	assert.Empty(t, infra.HealthCheckers())
	assert.False(t, infra.JobsReady())
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := defaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	infra, err := Open(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	defer infra.Close()

	require.NotNil(t, infra.Redis)
	checks := infra.HealthCheckers()
	require.Contains(t, checks, "redis")
	assert.NoError(t, checks["redis"].HealthCheck(context.Background()))
	assert.False(t, infra.JobsReady())
}

func TestOpen_RedisUnreachable(t *testing.T) {
	cfg := defaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := Open(context.Background(), cfg, logging.NewNopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestNewPipeline(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := defaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()
	cfg.LLM.BaseURL = "http://127.0.0.1:1/v1"
	cfg.LLM.CacheEnabled = true

	infra, err := Open(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	defer infra.Close()
	m, err := NewMetrics(config.MetricsConfig{Enabled: true, Namespace: "longdoc_pipeline"}, nil)
	require.NoError(t, err)

	svc, err := NewPipeline(cfg, infra, m, logging.NewNopLogger())
	require.NoError(t, err)
	require.NotNil(t, svc)

	res, err := svc.SegmentDocument(context.Background(), "short office action text", document.Options{})
	require.NoError(t, err)
	assert.Len(t, res.Segments, 1)
}

func TestNewPipeline_LLMNotConfigured(t *testing.T) {
	cfg := defaultConfig()
	cfg.LLM.APIKey = ""
	cfg.LLM.BaseURL = ""

	_, err := NewPipeline(cfg, nil, &Metrics{}, logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeLLMNotConfigured))
}

//Personal.AI order the ending
