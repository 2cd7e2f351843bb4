package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/buildbuddy/engine/docs"
	"github.com/buildbuddy/engine/internal/api"
	"github.com/buildbuddy/engine/internal/api/handlers"
	"github.com/buildbuddy/engine/internal/generation"
	"github.com/buildbuddy/engine/internal/identity"
	"github.com/buildbuddy/engine/internal/models"
	"github.com/buildbuddy/engine/internal/queue/tasks"
	"github.com/buildbuddy/engine/internal/repository"
	"github.com/buildbuddy/engine/internal/wizard"
	"github.com/buildbuddy/engine/pkg/config"
	"github.com/buildbuddy/engine/pkg/database"
	"github.com/buildbuddy/engine/pkg/logger"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title           BuildBuddy API
// @version         1.0
// @description     Guided hackathon project planning: analysis, ideas, execution plan, build guide and deployment.

// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting buildbuddy api",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("ai_provider", cfg.AIProvider),
	)

	ctx := context.Background()
	db, err := database.Open(ctx, database.Options{
		Driver:  cfg.DatabaseDriver,
		DSN:     cfg.DatabaseURL,
		Verbose: cfg.IsDevelopment(),
		Log:     log,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	if cfg.DatabaseDriver == database.DriverSQLite {
		if err := database.Migrate(db, models.All()...); err != nil {
			log.Fatal("sqlite migration failed", zap.Error(err))
		}
	}
	log.Info("database connected", zap.String("driver", cfg.DatabaseDriver))

	checks := map[string]handlers.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		if !cfg.IsDevelopment() {
			log.Fatal("JWT_SECRET must be set outside development")
		}
		log.Warn("JWT_SECRET not set, using an insecure development secret")
		secret = []byte("buildbuddy-dev-secret")
	}

	revocations := identity.NewMemoryRevocations()
	if rdb != nil {
		revocations = identity.NewRedisRevocations(rdb)
	}
	users := repository.NewUserRepository(db)
	auth := identity.NewService(users, revocations, secret, cfg.TokenTTL)

	gen, err := generation.New(generation.Config{
		Provider: cfg.AIProvider,
		BaseURL:  cfg.AIBaseURL,
		APIKey:   cfg.AIAPIKey,
		Model:    cfg.AIModel,
		Timeout:  cfg.AITimeout,
	})
	if err != nil {
		log.Fatal("failed to build generator", zap.Error(err))
	}

	cache := wizard.NewMemoryCache(cfg.CacheTTL)
	if cfg.CacheBackend == "redis" {
		cache = wizard.NewRedisCache(rdb, cfg.CacheTTL)
	}

	store := repository.NewStore(
		repository.NewHackathonRepository(db),
		repository.NewProjectRepository(db),
		repository.NewArchitectureRepository(db),
		repository.NewStepRepository(db),
	)
	manager := wizard.NewManager(gen, store, auth, cache)
	defer manager.Close()

	// Exports go through the worker when Redis is available and render inline otherwise.
	var exporter *tasks.Exporter
	if rdb != nil {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer client.Close()
		exporter = tasks.NewExporter(store, tasks.NewRedisExportStore(rdb, cfg.ExportTTL), client)
	} else {
		exporter = tasks.NewExporter(store, tasks.NewMemoryExportStore(), nil)
	}

	router := api.NewRouter(api.Dependencies{
		Authenticator: auth,
		AuthHandler:   handlers.NewAuthHandler(auth, cfg.TokenTTL),
		WizardHandler: handlers.NewWizardHandler(manager, exporter),
		HealthHandler: handlers.NewHealthHandler(checks),
	})

	// Generation calls can run for a while, so writes get a generous timeout.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.AITimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
