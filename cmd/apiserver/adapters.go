package main

import (
	"time"

	"github.com/turtacn/KeyIP-LongDoc/internal/application/analysisjob"
	"github.com/turtacn/KeyIP-LongDoc/internal/bootstrap"
	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-LongDoc/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-LongDoc/internal/interfaces/http/middleware"
)

const limiterCleanupInterval = 5 * time.Minute

// newJobService returns nil, and the job endpoints answer 503, unless redis,
// minio and kafka are all connected.
func newJobService(cfg *config.Config, infra *bootstrap.Infrastructure, logger logging.Logger) (handlers.JobService, error) {
	if !infra.JobsReady() {
		logger.Info("asynchronous jobs disabled; enable redis, minio and kafka to turn them on")
		return nil, nil
	}
	submitter, err := analysisjob.NewSubmitter(
		redis.NewJobRepository(infra.Redis, cfg.Redis.JobTTL, logger.Named("jobs")),
		minio.NewDocumentStore(infra.MinIO, logger.Named("store")),
		infra.Producer,
		analysisjob.SubmitterConfig{JobTopic: cfg.Kafka.JobTopic},
		logger,
	)
	if err != nil {
		return nil, err
	}
	return submitter, nil
}

func newAuth(cfg config.ServerConfig, logger logging.Logger) *middleware.AuthMiddleware {
	if len(cfg.APIKeys) == 0 {
		logger.Warn("no API keys configured, /api/v1 is unauthenticated")
		return nil
	}
	return middleware.NewAuthMiddleware(middleware.AuthConfig{APIKeys: cfg.APIKeys}, logger.Named("auth"))
}

// newRateLimiter returns nil when rate limiting is off.
func newRateLimiter(cfg config.ServerConfig) *middleware.TokenBucketLimiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	return middleware.NewTokenBucketLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, limiterCleanupInterval)
}

func healthGauge(m *bootstrap.Metrics) handlers.ComponentGauge {
	if !m.Enabled() {
		return nil
	}
	return m.LongDoc
}

//Personal.AI order the ending
