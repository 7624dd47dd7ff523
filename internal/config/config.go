// Package config defines all configuration structures for the KeyIP-LongDoc
// service.  No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// APIKeys, when non-empty, are required on every /api/v1 request.
	APIKeys        []string `mapstructure:"api_keys"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"` // 0 disables rate limiting
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// LLMConfig holds the chat-completion provider settings.
type LLMConfig struct {
	Provider     string        `mapstructure:"provider"` // "openai" | "azure"
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Organization string        `mapstructure:"organization"`
	APIVersion   string        `mapstructure:"api_version"` // azure only
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	CacheEnabled bool          `mapstructure:"cache_enabled"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// SegmentationConfig holds the pipeline defaults applied when a request does
// not carry its own options.
type SegmentationConfig struct {
	MaxTokensPerSegment  int    `mapstructure:"max_tokens_per_segment"`
	PreserveContext      bool   `mapstructure:"preserve_context"`
	MergingStrategy      string `mapstructure:"merging_strategy"`
	StructureSampleChars int    `mapstructure:"structure_sample_chars"`
	ContextSegments      int    `mapstructure:"context_segments"`
	ContextPreviewChars  int    `mapstructure:"context_preview_chars"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	JobTTL       time.Duration `mapstructure:"job_ttl"`
}

// KafkaConfig holds the analysis-job messaging parameters.
type KafkaConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	JobTopic        string        `mapstructure:"job_topic"`
	ResultTopic     string        `mapstructure:"result_topic"`
	DLQTopic        string        `mapstructure:"dlq_topic"`
	AutoOffsetReset string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	Compression     string        `mapstructure:"compression"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters.
type MinIOConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	Region         string `mapstructure:"region"`
	DocumentBucket string `mapstructure:"document_bucket"`
	ResultBucket   string `mapstructure:"result_bucket"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	JobTimeout  time.Duration `mapstructure:"job_timeout"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
	HealthPort  int           `mapstructure:"health_port"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure shared by the API server, the
// worker and the CLI.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Segmentation SegmentationConfig `mapstructure:"segmentation"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	MinIO        MinIOConfig        `mapstructure:"minio"`
	Worker       WorkerConfig       `mapstructure:"worker"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

// JobsEnabled reports whether the asynchronous job path has everything it
// needs: Kafka for dispatch, Redis for job state, MinIO for payloads.
func (c *Config) JobsEnabled() bool {
	return c.Kafka.Enabled && c.Redis.Enabled && c.MinIO.Enabled
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config and
// returns the first error encountered.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("config: server.rate_limit_rps must be ≥ 0, got %g", c.Server.RateLimitRPS)
	}

	// LLM
	switch c.LLM.Provider {
	case "openai", "azure":
	default:
		return fmt.Errorf("config: llm.provider %q is invalid; expected openai|azure", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("config: llm.model is required")
	}
	if c.LLM.Provider == "azure" && c.LLM.BaseURL == "" {
		return fmt.Errorf("config: llm.base_url is required for the azure provider")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("config: llm.max_retries must be ≥ 0, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.CacheEnabled && !c.Redis.Enabled {
		return fmt.Errorf("config: llm.cache_enabled requires redis.enabled")
	}

	// Segmentation
	if c.Segmentation.MaxTokensPerSegment < 1 {
		return fmt.Errorf("config: segmentation.max_tokens_per_segment must be ≥ 1, got %d", c.Segmentation.MaxTokensPerSegment)
	}
	switch c.Segmentation.MergingStrategy {
	case "strict", "loose", "intelligent":
	default:
		return fmt.Errorf("config: segmentation.merging_strategy %q is invalid; expected strict|loose|intelligent", c.Segmentation.MergingStrategy)
	}
	if c.Segmentation.ContextSegments < 0 {
		return fmt.Errorf("config: segmentation.context_segments must be ≥ 0, got %d", c.Segmentation.ContextSegments)
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
		if c.Kafka.JobTopic == "" {
			return fmt.Errorf("config: kafka.job_topic is required")
		}
	}

	// MinIO
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required")
		}
		if c.MinIO.DocumentBucket == "" || c.MinIO.ResultBucket == "" {
			return fmt.Errorf("config: minio.document_bucket and minio.result_bucket are required")
		}
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

//Personal.AI order the ending
