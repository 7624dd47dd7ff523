package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerMaxBodySize     = 20 << 20
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 10 * time.Minute
	DefaultServerRequestTimeout  = 10 * time.Minute
	DefaultServerShutdownTimeout = 30 * time.Second
	DefaultServerRateLimitBurst  = 20

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultLLMProvider     = "openai"
	DefaultLLMModel        = "gpt-4o-mini"
	DefaultLLMTimeout      = 120 * time.Second
	DefaultLLMMaxRetries   = 2
	DefaultLLMRetryBackoff = time.Second
	DefaultLLMCacheTTL     = 24 * time.Hour

	DefaultMaxTokensPerSegment  = 15000
	DefaultMergingStrategy      = "intelligent"
	DefaultStructureSampleChars = 10000
	DefaultContextSegments      = 2
	DefaultContextPreviewChars  = 200

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "longdoc:"
	DefaultRedisJobTTL    = 7 * 24 * time.Hour

	DefaultKafkaBroker      = "localhost:9092"
	DefaultKafkaGroupID     = "longdoc-worker"
	DefaultKafkaJobTopic    = "longdoc.job.submitted"
	DefaultKafkaResultTopic = "longdoc.job.completed"
	DefaultKafkaDLQTopic    = "longdoc.dlq"

	DefaultMinIOEndpoint       = "localhost:9000"
	DefaultMinIODocumentBucket = "longdoc-documents"
	DefaultMinIOResultBucket   = "longdoc-results"

	DefaultWorkerConcurrency = 4
	DefaultWorkerJobTimeout  = 30 * time.Minute
	DefaultWorkerLockTTL     = 35 * time.Minute
	DefaultWorkerHealthPort  = 8081

	DefaultMetricsNamespace = "longdoc"
	DefaultMetricsPath      = "/metrics"
)

// defaultValues lists the viper-level defaults. Registering every key lets
// LONGDOC_* environment variables override settings even when no config file
// mentions them.
var defaultValues = map[string]interface{}{
	"server.port":             DefaultServerPort,
	"server.mode":             DefaultServerMode,
	"server.read_timeout":     DefaultServerReadTimeout,
	"server.write_timeout":    DefaultServerWriteTimeout,
	"server.request_timeout":  DefaultServerRequestTimeout,
	"server.max_body_size":    DefaultServerMaxBodySize,
	"server.shutdown_timeout": DefaultServerShutdownTimeout,
	"server.api_keys":         []string{},
	"server.rate_limit_rps":   0.0,
	"server.rate_limit_burst": DefaultServerRateLimitBurst,
	"server.cors_origins":     []string{},

	"log.level":  DefaultLogLevel,
	"log.format": DefaultLogFormat,

	"llm.provider":      DefaultLLMProvider,
	"llm.api_key":       "",
	"llm.base_url":      "",
	"llm.organization":  "",
	"llm.api_version":   "",
	"llm.model":         DefaultLLMModel,
	"llm.timeout":       DefaultLLMTimeout,
	"llm.max_retries":   DefaultLLMMaxRetries,
	"llm.retry_backoff": DefaultLLMRetryBackoff,
	"llm.cache_enabled": false,
	"llm.cache_ttl":     DefaultLLMCacheTTL,

	"segmentation.max_tokens_per_segment": DefaultMaxTokensPerSegment,
	"segmentation.preserve_context":       true,
	"segmentation.merging_strategy":       DefaultMergingStrategy,
	"segmentation.structure_sample_chars": DefaultStructureSampleChars,
	"segmentation.context_segments":       DefaultContextSegments,
	"segmentation.context_preview_chars":  DefaultContextPreviewChars,

	"redis.enabled":    false,
	"redis.addr":       DefaultRedisAddr,
	"redis.password":   "",
	"redis.db":         0,
	"redis.key_prefix": DefaultRedisKeyPrefix,
	"redis.job_ttl":    DefaultRedisJobTTL,

	"kafka.enabled":           false,
	"kafka.brokers":           []string{DefaultKafkaBroker},
	"kafka.group_id":          DefaultKafkaGroupID,
	"kafka.job_topic":         DefaultKafkaJobTopic,
	"kafka.result_topic":      DefaultKafkaResultTopic,
	"kafka.dlq_topic":         DefaultKafkaDLQTopic,
	"kafka.auto_offset_reset": "earliest",
	"kafka.max_retries":       3,

	"minio.enabled":         false,
	"minio.endpoint":        DefaultMinIOEndpoint,
	"minio.access_key":      "",
	"minio.secret_key":      "",
	"minio.use_ssl":         false,
	"minio.document_bucket": DefaultMinIODocumentBucket,
	"minio.result_bucket":   DefaultMinIOResultBucket,

	"worker.concurrency": DefaultWorkerConcurrency,
	"worker.job_timeout": DefaultWorkerJobTimeout,
	"worker.lock_ttl":    DefaultWorkerLockTTL,
	"worker.health_port": DefaultWorkerHealthPort,

	"metrics.enabled":   true,
	"metrics.namespace": DefaultMetricsNamespace,
	"metrics.path":      DefaultMetricsPath,
}

// ApplyDefaults fills every zero-value field in cfg with its default.  Values
// already set by the caller are left unchanged.  Booleans cannot be told
// apart from "unset" and keep their zero value; callers building a Config by
// hand set them explicitly.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultServerRequestTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultServerMaxBodySize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = DefaultServerRateLimitBurst
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── LLM ───────────────────────────────────────────────────────────────────
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = DefaultLLMProvider
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultLLMModel
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = DefaultLLMTimeout
	}
	if cfg.LLM.RetryBackoff == 0 {
		cfg.LLM.RetryBackoff = DefaultLLMRetryBackoff
	}
	if cfg.LLM.CacheTTL == 0 {
		cfg.LLM.CacheTTL = DefaultLLMCacheTTL
	}

	// ── Segmentation ──────────────────────────────────────────────────────────
	if cfg.Segmentation.MaxTokensPerSegment == 0 {
		cfg.Segmentation.MaxTokensPerSegment = DefaultMaxTokensPerSegment
	}
	if cfg.Segmentation.MergingStrategy == "" {
		cfg.Segmentation.MergingStrategy = DefaultMergingStrategy
	}
	if cfg.Segmentation.StructureSampleChars == 0 {
		cfg.Segmentation.StructureSampleChars = DefaultStructureSampleChars
	}
	if cfg.Segmentation.ContextSegments == 0 {
		cfg.Segmentation.ContextSegments = DefaultContextSegments
	}
	if cfg.Segmentation.ContextPreviewChars == 0 {
		cfg.Segmentation.ContextPreviewChars = DefaultContextPreviewChars
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.JobTTL == 0 {
		cfg.Redis.JobTTL = DefaultRedisJobTTL
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.JobTopic == "" {
		cfg.Kafka.JobTopic = DefaultKafkaJobTopic
	}
	if cfg.Kafka.ResultTopic == "" {
		cfg.Kafka.ResultTopic = DefaultKafkaResultTopic
	}
	if cfg.Kafka.DLQTopic == "" {
		cfg.Kafka.DLQTopic = DefaultKafkaDLQTopic
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.DocumentBucket == "" {
		cfg.MinIO.DocumentBucket = DefaultMinIODocumentBucket
	}
	if cfg.MinIO.ResultBucket == "" {
		cfg.MinIO.ResultBucket = DefaultMinIOResultBucket
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.JobTimeout == 0 {
		cfg.Worker.JobTimeout = DefaultWorkerJobTimeout
	}
	if cfg.Worker.LockTTL == 0 {
		cfg.Worker.LockTTL = DefaultWorkerLockTTL
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

//Personal.AI order the ending
