package database

import (
	"context"
	"fmt"

	"github.com/kbukum/streambot/component"
	"github.com/kbukum/streambot/logger"
)

// Component wraps DB and implements component.Component for lifecycle management.
type Component struct {
	db    *DB
	store *Store
	cfg   Config
	log   *logger.Logger
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a database component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg: cfg,
		log: log.WithComponent("database"),
	}
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	return c.db
}

// Store returns the state store, or nil if not started.
func (c *Component) Store() *Store {
	return c.store
}

// Name returns the component name.
func (c *Component) Name() string { return "database" }

// Start connects to the database and creates missing tables.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	if err := db.CreateSchema(ctx, Models()...); err != nil {
		db.Close()
		return fmt.Errorf("database schema: %w", err)
	}
	c.db = db
	c.store = NewStore(db)
	return nil
}

// Stop closes the database connection.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health returns the current health status of the database.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.db == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "database not initialized",
		}
	}

	if h := c.db.CheckHealth(ctx); !h.Connected {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %s", h.Error),
		}
	}

	return component.Health{
		Name:   c.Name(),
		Status: component.StatusHealthy,
	}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	t, _ := parseURL(c.cfg.URL)
	details := t.driver
	if t.driver == DriverSQLite {
		details += " " + t.dsn
	}
	return component.Description{
		Name:    "Database",
		Type:    "database",
		Details: details,
	}
}
