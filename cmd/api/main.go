package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/app"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var repos app.Repositories
	if pg.Enabled() {
		repos = app.PostgresRepositories(pg.Pool)
	} else {
		store := memory.NewStore()
		app.SeedDemo(store)
		repos = app.MemoryRepositories(store)
	}

	metrics := observability.NewMetrics()
	container := app.NewContainer(cfg, repos, logger, app.Options{Redis: redis, Metrics: metrics})

	if cfg.SLA.WorkerEnabled {
		slaWorker := worker.NewSLAWorker(container.SLA, container.Locker, logger.Named("sla-worker"), worker.SLAWorkerConfig{
			Interval:  cfg.SLA.SweepInterval(),
			LockKey:   cfg.SLA.LockKey,
			LockTTL:   cfg.SLA.LockTTL(),
			WarnRatio: cfg.SLA.WarnRatio,
		})
		go slaWorker.Start(ctx)
	}

	server := container.NewHTTPApp(app.HTTPDeps{Postgres: pg, Redis: redis})
	go func() {
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("helpdesk listening", zap.String("addr", cfg.App.Addr()), zap.Bool("postgres", pg.Enabled()))

	waitForShutdown(logger)

	cancel()
	_ = server.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
