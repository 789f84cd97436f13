package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/dmitrymomot/dispatch"
	"github.com/dmitrymomot/dispatch/internal/config"
	"github.com/dmitrymomot/dispatch/internal/db/migrations"
	"github.com/dmitrymomot/dispatch/middlewares"
	"github.com/dmitrymomot/dispatch/pkg/db"
	"github.com/dmitrymomot/dispatch/pkg/job"
	"github.com/dmitrymomot/dispatch/pkg/logger"
	"github.com/dmitrymomot/dispatch/pkg/mailer/resend"
	"github.com/dmitrymomot/dispatch/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logger, os.Stdout, middlewares.RequestIDExtractor())

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("application error", slog.Any("error", err))
		_ = logger.Flush(context.Background())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	if err := db.Migrate(ctx, pool, migrations.FS, cfg.DB.MigrationsTable, log); err != nil {
		pool.Close()
		return err
	}
	if err := job.Migrate(ctx, pool, log); err != nil {
		pool.Close()
		return err
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		return err
	}

	sender, err := resend.New(cfg.Resend)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return err
	}

	svc, err := dispatch.New(cfg, dispatch.Infra{Pool: pool, Redis: rdb, Sender: sender},
		dispatch.WithLogger(log),
	)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return err
	}

	log.Info("starting dispatch",
		slog.String("addr", cfg.Server.Addr),
		slog.Bool("jobs_worker", cfg.Jobs.WorkerEnabled),
	)

	return svc.Run(ctx,
		db.Shutdown(pool),
		redis.Shutdown(rdb),
		logger.Flush,
	)
}
