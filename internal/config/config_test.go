package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/KeyIP-LongDoc/internal/config"
)

// validConfig returns a Config that passes Validate().
func validConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(c *config.Config)
		want   string
	}{
		{"port out of range", func(c *config.Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad mode", func(c *config.Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"negative rate limit", func(c *config.Config) { c.Server.RateLimitRPS = -1 }, "server.rate_limit_rps"},
		{"bad provider", func(c *config.Config) { c.LLM.Provider = "bedrock" }, "llm.provider"},
		{"missing model", func(c *config.Config) { c.LLM.Model = "" }, "llm.model"},
		{"azure without base url", func(c *config.Config) { c.LLM.Provider = "azure" }, "llm.base_url"},
		{"negative retries", func(c *config.Config) { c.LLM.MaxRetries = -1 }, "llm.max_retries"},
		{"cache without redis", func(c *config.Config) { c.LLM.CacheEnabled = true }, "llm.cache_enabled"},
		{"zero budget", func(c *config.Config) { c.Segmentation.MaxTokensPerSegment = -5 }, "segmentation.max_tokens_per_segment"},
		{"bad merging strategy", func(c *config.Config) { c.Segmentation.MergingStrategy = "fuzzy" }, "segmentation.merging_strategy"},
		{"redis without addr", func(c *config.Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis.addr"},
		{"kafka without brokers", func(c *config.Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"kafka without topic", func(c *config.Config) { c.Kafka.Enabled = true; c.Kafka.JobTopic = "" }, "kafka.job_topic"},
		{"minio without bucket", func(c *config.Config) { c.MinIO.Enabled = true; c.MinIO.ResultBucket = "" }, "minio.document_bucket"},
		{"zero concurrency", func(c *config.Config) { c.Worker.Concurrency = 0 }, "worker.concurrency"},
		{"bad log level", func(c *config.Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "text" }, "log.format"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfig_JobsEnabled(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	assert.False(t, cfg.JobsEnabled())

	cfg.Kafka.Enabled = true
	cfg.Redis.Enabled = true
	assert.False(t, cfg.JobsEnabled())

	cfg.MinIO.Enabled = true
	assert.True(t, cfg.JobsEnabled())
}

//Personal.AI order the ending
