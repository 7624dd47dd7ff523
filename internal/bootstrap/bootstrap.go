// Package bootstrap wires configuration, logging, metrics and the optional
// backing services shared by the API server and the worker.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/turtacn/KeyIP-LongDoc/internal/application/longdoc"
	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-LongDoc/internal/intelligence/llm"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/common"
)

// LoadConfig reads a .env file when present, then configPath or, when it is
// empty, the environment alone.
func LoadConfig(configPath string) (*config.Config, error) {
	_ = godotenv.Load()
	return config.LoadOrEnv(configPath)
}

// NewLogger builds the process logger from the log section.
func NewLogger(c config.LogConfig) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{
		Level:       c.Level,
		Format:      c.Format,
		OutputPaths: c.OutputPaths,
	})
}

// Metrics bundles the registry and the instruments.  Both are nil when
// metrics are disabled.
type Metrics struct {
	Collector prometheus.MetricsCollector
	LongDoc   *prometheus.LongDocMetrics
}

// NewMetrics registers the process, Go runtime and longdoc metrics.
func NewMetrics(c config.MetricsConfig, log logging.Logger) (*Metrics, error) {
	if !c.Enabled {
		return &Metrics{}, nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            c.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, log)
	if err != nil {
		return nil, err
	}
	return &Metrics{Collector: collector, LongDoc: prometheus.NewLongDocMetrics(collector)}, nil
}

// Enabled reports whether instruments were registered.
func (m *Metrics) Enabled() bool { return m != nil && m.LongDoc != nil }

// Infrastructure holds the backing service clients.  Each is nil when its
// config section is disabled.
type Infrastructure struct {
	Redis    *redis.Client
	MinIO    *minio.Client
	Producer *kafka.Producer

	logger logging.Logger
}

// Open connects every enabled backing service.  On error the clients opened
// so far are closed.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{logger: log}

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(cfg.Redis, log.Named("redis"))
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		infra.Redis = rc
	}

	if cfg.MinIO.Enabled {
		mc, err := minio.NewClient(cfg.MinIO, log.Named("minio"))
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("minio: %w", err)
		}
		infra.MinIO = mc
	}

	if cfg.Kafka.Enabled {
		if err := ensureTopics(ctx, cfg.Kafka, log); err != nil {
			log.Warn("kafka topic setup failed, relying on broker auto-creation", logging.Err(err))
		}
		p, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), log.Named("kafka"))
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		infra.Producer = p
	}

	log.Info("infrastructure initialized",
		logging.Bool("redis", infra.Redis != nil),
		logging.Bool("minio", infra.MinIO != nil),
		logging.Bool("kafka", infra.Producer != nil))
	return infra, nil
}

func ensureTopics(ctx context.Context, c config.KafkaConfig, log logging.Logger) error {
	tm, err := kafka.NewTopicManager(c.Brokers, log.Named("kafka"))
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureTopics(ctx, kafka.JobTopics(c))
}

// HealthCheckers returns the readiness checks of the connected services.
func (i *Infrastructure) HealthCheckers() map[string]common.HealthChecker {
	checks := make(map[string]common.HealthChecker)
	if i.Redis != nil {
		checks["redis"] = i.Redis
	}
	if i.MinIO != nil {
		checks["minio"] = i.MinIO
	}
	return checks
}

// JobsReady reports whether the asynchronous job path can be wired.
func (i *Infrastructure) JobsReady() bool {
	return i.Redis != nil && i.MinIO != nil && i.Producer != nil
}

// Close releases every client in reverse order of opening.
func (i *Infrastructure) Close() {
	if i.Producer != nil {
		if err := i.Producer.Close(); err != nil {
			i.logger.Warn("kafka producer close failed", logging.Err(err))
		}
	}
	if i.MinIO != nil {
		_ = i.MinIO.Close()
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			i.logger.Warn("redis close failed", logging.Err(err))
		}
	}
}

// NewPipeline assembles the LLM completer chain and the longdoc service.
// The response cache is used when redis is connected.
func NewPipeline(cfg *config.Config, infra *Infrastructure, m *Metrics, log logging.Logger) (longdoc.Service, error) {
	deps := llm.Deps{Logger: log.Named("llm")}
	if infra != nil && infra.Redis != nil {
		deps.Cache = redis.NewRedisCache(infra.Redis, log.Named("cache"))
	}
	opts := []longdoc.Option{longdoc.WithLogger(log)}
	if m.Enabled() {
		deps.Recorder = m.LongDoc
		opts = append(opts, longdoc.WithRecorder(m.LongDoc))
	}

	completer, err := llm.NewFromConfig(cfg.LLM, deps)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	return longdoc.NewService(completer, longdoc.SettingsFromConfig(cfg.Segmentation), opts...)
}

//Personal.AI order the ending
