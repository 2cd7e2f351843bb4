package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/buildbuddy/engine/internal/queue/tasks"
	"github.com/buildbuddy/engine/internal/repository"
	"github.com/buildbuddy/engine/pkg/config"
	"github.com/buildbuddy/engine/pkg/database"
	"github.com/buildbuddy/engine/pkg/logger"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.RedisAddr == "" {
		log.Fatal("the worker needs REDIS_ADDR")
	}

	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	defer rdb.Close()

	db, err := database.Open(ctx, database.Options{
		Driver: cfg.DatabaseDriver,
		DSN:    cfg.DatabaseURL,
		Log:    log,
	})
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close(db)

	store := repository.NewStore(
		repository.NewHackathonRepository(db),
		repository.NewProjectRepository(db),
		repository.NewArchitectureRepository(db),
		repository.NewStepRepository(db),
	)
	exporter := tasks.NewExporter(store, tasks.NewRedisExportStore(rdb, cfg.ExportTTL), nil)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword},
		asynq.Config{
			Concurrency: cfg.AsynqConcurrency,
			Logger:      log.Named("asynq").Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypePlanExport, exporter.HandlePlanExport)

	errCh := make(chan error, 1)
	go func() {
		log.Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("worker stopped with error", zap.Error(err))
	}

	srv.Shutdown()
}
