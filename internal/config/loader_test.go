package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 9090
  mode: debug
log:
  level: debug
  format: console
llm:
  provider: openai
  api_key: sk-test
  model: gpt-4o
  timeout: 45s
  max_retries: 4
segmentation:
  max_tokens_per_segment: 8000
  preserve_context: true
  merging_strategy: strict
redis:
  enabled: true
  addr: "redis:6379"
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
minio:
  enabled: true
  endpoint: "minio:9000"
  access_key: key
  secret_key: secret
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 4, cfg.LLM.MaxRetries)
	assert.Equal(t, 8000, cfg.Segmentation.MaxTokensPerSegment)
	assert.Equal(t, "strict", cfg.Segmentation.MergingStrategy)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.JobsEnabled())

	// untouched keys come from defaults
	assert.Equal(t, DefaultKafkaJobTopic, cfg.Kafka.JobTopic)
	assert.Equal(t, DefaultContextPreviewChars, cfg.Segmentation.ContextPreviewChars)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := createTempConfigFile(t, "segmentation:\n  merging_strategy: fuzzy\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segmentation.merging_strategy")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("LONGDOC_LLM_MODEL", "gpt-4.1")
	t.Setenv("LONGDOC_SEGMENTATION_MAX_TOKENS_PER_SEGMENT", "12000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	assert.Equal(t, 12000, cfg.Segmentation.MaxTokensPerSegment)
}

func TestLoadFromEnv_DefaultsOnly(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.True(t, cfg.Segmentation.PreserveContext)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.JobsEnabled())
}

func TestLoadFromEnv_OpenAIKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-openai-env")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-openai-env", cfg.LLM.APIKey)
}

func TestLoadOrEnv(t *testing.T) {
	cfg, err := LoadOrEnv("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, cfg.LLM.Model)

	cfg, err = LoadOrEnv(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "nope.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	changed := make(chan *Config, 4)
	require.NoError(t, Watch(path, func(c *Config) { changed <- c }, nil))

	updated := validConfigYAML + "\nworker:\n  concurrency: 9\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Worker.Concurrency == 9 {
				return
			}
		case <-deadline:
			t.Skip("filesystem notifications not delivered in this environment")
		}
	}
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}

//Personal.AI order the ending
