package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/resilience"
)

// DB wraps a bun database with logging.
type DB struct {
	Bun    *bun.DB
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// Open connects with retry and pool settings from cfg.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t, _ := parseURL(cfg.URL)
	slowThreshold, _ := time.ParseDuration(cfg.SlowQueryThreshold)

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Warn("Database connection attempt failed, retrying", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
			"backoff": backoff.String(),
		})
	}

	sqlDB, err := resilience.Retry(ctx, retry, func(ctx context.Context) (*sql.DB, error) {
		db, err := sql.Open(t.driver, t.dsn)
		if err != nil {
			return nil, resilience.Permanent(err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			if !IsConnectionError(err) {
				return nil, resilience.Permanent(err)
			}
			return nil, err
		}
		return db, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", t.driver, err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		sqlDB.SetConnMaxLifetime(lifetime)
	}
	if t.driver == DriverSQLite {
		// One writer; avoids SQLITE_BUSY between the chat and web handlers.
		sqlDB.SetMaxOpenConns(1)
	}

	db := bun.NewDB(sqlDB, t.dialect())
	db.AddQueryHook(newQueryHook(log, slowThreshold))

	log.Info("Database connection established", map[string]interface{}{
		"driver": t.driver,
	})
	return &DB{Bun: db, log: log, cfg: cfg}, nil
}

// Close closes the connection pool. Safe to call multiple times.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.log.Info("Closing database connection")
	d.closed = true
	return d.Bun.Close()
}

// PingContext verifies the database connection is alive.
func (d *DB) PingContext(ctx context.Context) error {
	return d.Bun.PingContext(ctx)
}

// CreateSchema creates the tables for models that do not exist yet.
func (d *DB) CreateSchema(ctx context.Context, models ...interface{}) error {
	for _, model := range models {
		if _, err := d.Bun.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}
	return nil
}

// TransactionFunc defines a function that runs within a transaction.
type TransactionFunc func(ctx context.Context, tx bun.Tx) error

// WithTransaction executes fn within a transaction. A panic rolls back and
// is re-raised.
func (d *DB) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("Transaction rolled back due to panic", map[string]interface{}{
					"panic": fmt.Sprintf("%v", r),
				})
				panic(r)
			}
		}()
		return fn(ctx, tx)
	})
}

// HealthStatus is a point-in-time view of the pool.
type HealthStatus struct {
	Connected  bool          `json:"connected"`
	Error      string        `json:"error,omitempty"`
	Latency    time.Duration `json:"latency"`
	OpenConns  int           `json:"open_connections"`
	InUseConns int           `json:"in_use_connections"`
}

// CheckHealth pings the database and reports pool statistics.
func (d *DB) CheckHealth(ctx context.Context) HealthStatus {
	start := time.Now()
	if err := d.Bun.PingContext(ctx); err != nil {
		return HealthStatus{Connected: false, Error: err.Error(), Latency: time.Since(start)}
	}
	stats := d.Bun.DB.Stats()
	return HealthStatus{
		Connected:  true,
		Latency:    time.Since(start),
		OpenConns:  stats.OpenConnections,
		InUseConns: stats.InUse,
	}
}
