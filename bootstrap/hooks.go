package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Hook runs at a fixed point of the startup sequence or during shutdown.
type Hook func(ctx context.Context) error

// OnStart hooks run once the web server and the database are up and
// before any credential is requested.
func (a *App[C]) OnStart(hooks ...Hook) {
	a.onStart = append(a.onStart, hooks...)
}

// OnReady hooks run after subsystems are constructed, right before the
// join set starts.
func (a *App[C]) OnReady(hooks ...Hook) {
	a.onReady = append(a.onReady, hooks...)
}

// OnStop hooks run on shutdown before components stop, last registered
// first, the way deferred calls unwind.
func (a *App[C]) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

// runHooks stops at the first failing hook.
func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d: %w", i, err)
		}
	}
	return nil
}

// runStopHooks runs every hook in reverse and joins the failures.
func runStopHooks(ctx context.Context, hooks []Hook) error {
	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop hook %d: %w", i, err))
		}
	}
	return stderrors.Join(errs...)
}
