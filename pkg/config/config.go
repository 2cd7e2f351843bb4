package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER" validate:"required,oneof=postgres sqlite"`
	DatabaseURL    string `mapstructure:"DATABASE_URL" validate:"required"`

	// RedisAddr is optional: without it the cache stays in memory, tokens
	// cannot be revoked across processes and exports render inline.
	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`
	GoMaxProcs       int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL" validate:"required"`

	AIProvider string        `mapstructure:"AI_PROVIDER" validate:"required,oneof=openai ollama"`
	AIBaseURL  string        `mapstructure:"AI_BASE_URL" validate:"omitempty,url"`
	AIAPIKey   string        `mapstructure:"AI_API_KEY"`
	AIModel    string        `mapstructure:"AI_MODEL" validate:"required"`
	AITimeout  time.Duration `mapstructure:"AI_TIMEOUT" validate:"required"`

	CacheBackend string        `mapstructure:"CACHE_BACKEND" validate:"required,oneof=memory redis"`
	CacheTTL     time.Duration `mapstructure:"CACHE_TTL" validate:"required"`
	ExportTTL    time.Duration `mapstructure:"EXPORT_TTL" validate:"required"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var durationKeys = []string{"SHUTDOWN_TIMEOUT", "TOKEN_TTL", "AI_TIMEOUT", "CACHE_TTL", "EXPORT_TTL"}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("GOMAXPROCS", 0)
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("AI_PROVIDER", "openai")
	v.SetDefault("AI_MODEL", "gpt-4o-mini")
	v.SetDefault("AI_TIMEOUT", "90s")
	v.SetDefault("CACHE_BACKEND", "memory")
	v.SetDefault("CACHE_TTL", "6h")
	v.SetDefault("EXPORT_TTL", "1h")

	// Optional config file
	_ = v.ReadInConfig()

	keys := []string{
		"APP_ENV",
		"HTTP_ADDR",
		"SHUTDOWN_TIMEOUT",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"DATABASE_DRIVER",
		"DATABASE_URL",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"ASYNQ_CONCURRENCY",
		"GOMAXPROCS",
		"JWT_SECRET",
		"TOKEN_TTL",
		"AI_PROVIDER",
		"AI_BASE_URL",
		"AI_API_KEY",
		"AI_MODEL",
		"AI_TIMEOUT",
		"CACHE_BACKEND",
		"CACHE_TTL",
		"EXPORT_TTL",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Parse duration types that may come as string
	for _, key := range durationKeys {
		s := v.GetString(key)
		if s == "" {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		switch key {
		case "SHUTDOWN_TIMEOUT":
			c.ShutdownTimeout = d
		case "TOKEN_TTL":
			c.TokenTTL = d
		case "AI_TIMEOUT":
			c.AITimeout = d
		case "CACHE_TTL":
			c.CacheTTL = d
		case "EXPORT_TTL":
			c.ExportTTL = d
		}
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if c.CacheBackend == "redis" && c.RedisAddr == "" {
		return nil, fmt.Errorf("invalid configuration: CACHE_BACKEND=redis requires REDIS_ADDR")
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}

// IsDevelopment reports whether the app runs in a local or test environment.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "test"
}
