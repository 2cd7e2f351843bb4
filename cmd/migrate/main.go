package main

import (
	"context"
	"fmt"
	"os"

	"github.com/buildbuddy/engine/pkg/config"
	"github.com/buildbuddy/engine/pkg/database"
	"github.com/buildbuddy/engine/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.Open(context.Background(), database.Options{
		Driver:  cfg.DatabaseDriver,
		DSN:     cfg.DatabaseURL,
		Verbose: true,
		Log:     log,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := runMigrations(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
