package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/trainboard/internal/adapters/http/api"
	"github.com/okian/trainboard/internal/adapters/http/swagger"
	"github.com/okian/trainboard/internal/adapters/repository"
	service "github.com/okian/trainboard/internal/app"
	"github.com/okian/trainboard/internal/config"
	"github.com/okian/trainboard/internal/domain/schedule"
	"github.com/okian/trainboard/internal/roster"
	"github.com/okian/trainboard/pkg/logger"
	"github.com/okian/trainboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		// The logger may not be initialized yet.
		os.Stderr.WriteString("trainboard: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitWithOptions(loggerOptions(cfg)...); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get().With(logger.String("alliance", cfg.Alliance))

	registry := metrics.GetRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	svc := newService(cfg, store, log)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	if cfg.SeedFile != "" {
		if err := seed(ctx, svc, cfg.SeedFile); err != nil {
			return err
		}
		log.Info(ctx, "roster seeded", logger.String("file", cfg.SeedFile))
	}
	settings, err := svc.Settings(ctx)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	metrics.UpdateSettingsVersion(settings.Version)

	go startServiceMetricsUpdater(ctx, svc)

	srv := newHTTPServer(cfg.Addr, newRouter(ctx, svc, log))
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
	return nil
}

func loggerOptions(cfg *config.Config) []logger.Option {
	return []logger.Option{
		logger.WithFormat(cfg.LogFormat),
		logger.WithLevel(cfg.LogLevel),
		logger.WithFile(logger.FileConfig{
			Path:       cfg.LogFile,
			MaxSizeMB:  cfg.LogFileMaxSizeMB,
			MaxBackups: cfg.LogFileMaxBackups,
			MaxAgeDays: cfg.LogFileMaxAgeDays,
			Compress:   true,
		}),
	}
}

// openStore selects PostgreSQL when a database URL is configured and the
// in-memory store otherwise. Either way calls are timed.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	opts := []repository.Option{repository.WithDefaultSettings(cfg.Scoring)}
	if cfg.DatabaseURL == "" {
		return repository.Instrument(repository.NewMemoryStore(opts...)), nil
	}
	pg, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	return repository.Instrument(pg), nil
}

func newService(cfg *config.Config, store repository.Store, log logger.Logger) *service.Service {
	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.EventQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithDedupeTTL(cfg.DedupeTTL),
	}
	if cfg.ScheduleConductorsFirst {
		opts = append(opts, service.WithScheduleOptions(schedule.WithConductorsFirst()))
	}
	return service.New(store, opts...)
}

func seed(ctx context.Context, svc *service.Service, path string) error {
	r, err := roster.Load(path)
	if err != nil {
		return fmt.Errorf("load seed roster: %w", err)
	}
	if err := svc.Seed(ctx, r.Snapshot); err != nil {
		return fmt.Errorf("seed roster: %w", err)
	}
	return nil
}

func newRouter(ctx context.Context, svc *service.Service, log logger.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(api.LoggingMiddleware(log.Named("http")))
	api.NewServer(svc).Register(ctx, r)
	swagger.Register(ctx, r)
	return r
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startServiceMetricsUpdater publishes queue depth until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workers, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerActiveCount(workers)
	}
}
