package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/kbukum/streambot/logger"
)

// queryHook routes bun query events to the component logger.
type queryHook struct {
	log           *logger.Logger
	slowThreshold time.Duration
}

var _ bun.QueryHook = (*queryHook)(nil)

func newQueryHook(log *logger.Logger, slowThreshold time.Duration) *queryHook {
	return &queryHook{log: log.WithComponent("bun"), slowThreshold: slowThreshold}
}

func (h *queryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)

	switch {
	case event.Err != nil && !stderrors.Is(event.Err, sql.ErrNoRows):
		h.log.Error("Query error", map[string]interface{}{
			"sql": event.Query, "duration": elapsed.String(), "error": event.Err.Error(),
		})
	case elapsed > h.slowThreshold:
		h.log.Warn("Slow query", map[string]interface{}{
			"sql": event.Query, "duration": elapsed.String(),
		})
	default:
		h.log.Debug("Query", map[string]interface{}{
			"sql": event.Query, "duration": elapsed.String(),
		})
	}
}
