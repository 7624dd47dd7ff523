// Background worker entry point for KeyIP-LongDoc.
//
// The worker consumes longdoc.job.submitted events, runs the long document
// pipeline on the stored document and stores the result next to it.  Every
// consumer joins the same group, so partitions are spread across
// --concurrency readers and across worker replicas.  Failed messages are
// retried with exponential backoff and finally dead-lettered.  /healthz,
// /readyz and /metrics are served on the health port.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/KeyIP-LongDoc/internal/application/analysisjob"
	"github.com/turtacn/KeyIP-LongDoc/internal/bootstrap"
	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/storage/minio"
	httpserver "github.com/turtacn/KeyIP-LongDoc/internal/interfaces/http"
	"github.com/turtacn/KeyIP-LongDoc/internal/interfaces/http/handlers"
)

var version = "dev"

const healthShutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	workers := flag.Int("concurrency", 0, "number of consumers in the group (overrides config)")
	flag.Parse()

	cfg, err := bootstrap.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Worker.Concurrency = *workers
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	if !cfg.JobsEnabled() {
		return fmt.Errorf("the worker requires redis, minio and kafka to be enabled")
	}
	logger.Info("starting KeyIP-LongDoc worker",
		logging.String("version", version),
		logging.Int("concurrency", cfg.Worker.Concurrency),
		logging.String("topic", cfg.Kafka.JobTopic),
		logging.String("group", cfg.Kafka.GroupID),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics, err := bootstrap.NewMetrics(cfg.Metrics, logger)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	infra, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	pipeline, err := bootstrap.NewPipeline(cfg, infra, metrics, logger.Named("longdoc"))
	if err != nil {
		return err
	}

	deps := analysisjob.RunnerDeps{
		Repo:      redis.NewJobRepository(infra.Redis, cfg.Redis.JobTTL, logger.Named("jobs")),
		Store:     minio.NewDocumentStore(infra.MinIO, logger.Named("store")),
		Locks:     redis.NewLockFactory(infra.Redis, logger.Named("lock")),
		Processor: pipeline,
		Publisher: infra.Producer,
	}
	if metrics.Enabled() {
		deps.Recorder = metrics.LongDoc
	}
	runner, err := analysisjob.NewRunner(deps, analysisjob.RunnerConfigFrom(cfg.Worker, cfg.Kafka), logger)
	if err != nil {
		return err
	}

	consumers, err := startConsumers(ctx, cfg, runner, infra.Producer, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range consumers {
			if err := c.Close(); err != nil {
				logger.Warn("consumer close failed", logging.Err(err))
			}
		}
	}()

	healthSrv := newHealthServer(cfg, infra, metrics, logger)
	go func() {
		if err := healthSrv.Start(); err != nil {
			logger.Error("health server error", logging.Err(err))
		}
	}()

	logger.Info("worker started", logging.Int("consumers", len(consumers)))
	<-ctx.Done()
	logger.Info("received shutdown signal, waiting for in-flight jobs")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), healthShutdownTimeout)
	defer cancel()
	if err := healthSrv.Stop(shutdownCtx); err != nil {
		logger.Warn("health server shutdown error", logging.Err(err))
	}
	// deferred Close calls drain the consumers before infra is released
	return nil
}

func startConsumers(ctx context.Context, cfg *config.Config, runner *analysisjob.Runner, dlq kafka.Publisher, logger logging.Logger) ([]*kafka.Consumer, error) {
	n := cfg.Worker.Concurrency
	if n <= 0 {
		n = config.DefaultWorkerConcurrency
	}
	ccfg := kafka.ConsumerConfigFrom(cfg.Kafka)

	consumers := make([]*kafka.Consumer, 0, n)
	closeAll := func() {
		for _, c := range consumers {
			_ = c.Close()
		}
	}
	for i := 0; i < n; i++ {
		c, err := kafka.NewConsumer(ccfg, dlq, logger.Named("kafka").With(logging.Int("consumer", i)))
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		c.Subscribe(cfg.Kafka.JobTopic, runner.Handle)
		if err := c.Start(ctx); err != nil {
			closeAll()
			return nil, err
		}
		consumers = append(consumers, c)
	}
	return consumers, nil
}

func newHealthServer(cfg *config.Config, infra *bootstrap.Infrastructure, metrics *bootstrap.Metrics, logger logging.Logger) *httpserver.Server {
	var gauge handlers.ComponentGauge
	if metrics.Enabled() {
		gauge = metrics.LongDoc
	}
	health := handlers.NewHealthHandler(version, gauge)
	for name, checker := range infra.HealthCheckers() {
		health.AddChecker(name, checker)
	}

	routerCfg := httpserver.RouterConfig{HealthHandler: health}
	if metrics.Enabled() {
		routerCfg.MetricsHandler = metrics.Collector.Handler()
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	return httpserver.NewServer(config.ServerConfig{
		Port:            cfg.Worker.HealthPort,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: healthShutdownTimeout,
	}, httpserver.NewRouter(routerCfg), logger.Named("health"))
}

//Personal.AI order the ending
