// API server entry point for KeyIP-LongDoc.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/KeyIP-LongDoc/internal/bootstrap"
	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/KeyIP-LongDoc/internal/interfaces/http"
	"github.com/turtacn/KeyIP-LongDoc/internal/interfaces/http/handlers"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := bootstrap.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("API server exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	logger.Info("starting KeyIP-LongDoc API server",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.Int("port", cfg.Server.Port),
		logging.String("mode", cfg.Server.Mode),
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

	jobs, err := newJobService(cfg, infra, logger)
	if err != nil {
		return err
	}

	health := handlers.NewHealthHandler(version, healthGauge(metrics))
	for name, checker := range infra.HealthCheckers() {
		health.AddChecker(name, checker)
	}

	limiter := newRateLimiter(cfg.Server)
	if limiter != nil {
		defer limiter.Stop()
	}

	routerCfg := httpserver.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(pipeline, jobs, logger.Named("documents"), cfg.Server.MaxBodySize),
		HealthHandler:   health,
		Auth:            newAuth(cfg.Server, logger),
		CORSOrigins:     cfg.Server.CORSOrigins,
		RequestTimeout:  cfg.Server.RequestTimeout,
		Logger:          logger.Named("access"),
	}
	if limiter != nil {
		routerCfg.RateLimiter = limiter
	}
	if metrics.Enabled() {
		routerCfg.Metrics = metrics.LongDoc
		routerCfg.MetricsHandler = metrics.Collector.Handler()
		routerCfg.MetricsPath = cfg.Metrics.Path
	}

	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	}

	if err := srv.Stop(context.Background()); err != nil {
		return err
	}
	logger.Info("KeyIP-LongDoc API server stopped")
	return nil
}

//Personal.AI order the ending
