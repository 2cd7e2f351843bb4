package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options tune Open. Log must be non-nil.
type Options struct {
	Driver  string
	DSN     string
	Verbose bool
	Log     *zap.Logger
}

// Open opens a gorm connection for the configured driver with retry and
// pooling defaults, then pings it.
func Open(ctx context.Context, opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	logLevel := gormlogger.Silent
	if opts.Verbose {
		logLevel = gormlogger.Warn
	}

	b := backoff{
		maxRetries: 5,
		delay:      500 * time.Millisecond,
		maxDelay:   5 * time.Second,
	}

	var db *gorm.DB
	var err error
	for attempt := 0; ; attempt++ {
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger:         zapGorm{zap: opts.Log.Named("gorm"), level: logLevel},
			TranslateError: true,
		})
		if err == nil {
			break
		}
		if attempt >= b.maxRetries {
			return nil, fmt.Errorf("open %s failed after retries: %w", opts.Driver, err)
		}
		opts.Log.Warn("database not ready, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("open %s canceled: %w", opts.Driver, ctx.Err())
		case <-time.After(b.nextDelay(attempt)):
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db db() error: %w", err)
	}

	if opts.Driver == DriverSQLite {
		// a single connection keeps in-memory databases shared and serializes writers
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctxPing); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// Migrate creates or updates tables for the given models. On postgres it
// also enables pgcrypto for UUID helpers used by ad-hoc queries.
func Migrate(db *gorm.DB, models ...any) error {
	if db.Dialector.Name() == DriverPostgres {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
			return fmt.Errorf("enable pgcrypto: %w", err)
		}
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type zapGorm struct {
	zap   *zap.Logger
	level gormlogger.LogLevel
}

func (l zapGorm) LogMode(level gormlogger.LogLevel) gormlogger.Interface { l.level = level; return l }
func (l zapGorm) Info(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.zap.Sugar().Infof(s, args...)
	}
}
func (l zapGorm) Warn(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.zap.Sugar().Warnf(s, args...)
	}
}
func (l zapGorm) Error(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.zap.Sugar().Errorf(s, args...)
	}
}
func (l zapGorm) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == gormlogger.Silent {
		return
	}
	sql, rows := fc()
	dur := time.Since(begin)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.zap.Error("gorm query error", zap.Duration("duration", dur), zap.Int64("rows", rows), zap.String("sql", sql), zap.Error(err))
		return
	}
	l.zap.Debug("gorm query", zap.Duration("duration", dur), zap.Int64("rows", rows), zap.String("sql", sql))
}

type backoff struct {
	maxRetries int
	delay      time.Duration
	maxDelay   time.Duration
}

func (b backoff) nextDelay(attempt int) time.Duration {
	d := b.delay << attempt
	if d > b.maxDelay {
		return b.maxDelay
	}
	return d
}
