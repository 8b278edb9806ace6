package component

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/streambot/logger"
)

// StopTimeout bounds each component's Stop during StopAll.
const StopTimeout = 10 * time.Second

type entry struct {
	Component
	started bool
}

// Registry starts components in registration order and stops the started
// ones in reverse. The web server is registered before the database so
// OAuth redirects can be served while the rest of startup waits.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
	byName  map[string]*entry
	log     *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*entry),
		log:    logger.WithComponent("components"),
	}
}

// Register adds c; names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byName[c.Name()]; dup {
		return fmt.Errorf("component %s already registered", c.Name())
	}
	e := &entry{Component: c}
	r.entries = append(r.entries, e)
	r.byName[c.Name()] = e
	return nil
}

// StartAll starts every component, stopping at the first failure. The
// components started before the failure stay marked started so StopAll
// releases them.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		start := time.Now()
		if err := e.Start(ctx); err != nil {
			r.log.Error("component failed to start", logger.Fields(
				logger.FieldComponent, e.Name(),
				logger.FieldError, err.Error(),
			))
			return fmt.Errorf("start %s: %w", e.Name(), err)
		}
		e.started = true
		r.log.Debug("component started", logger.Fields(
			logger.FieldComponent, e.Name(),
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
	}
	return nil
}

// StopAll stops the started components in reverse order and joins their
// errors.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !e.started {
			continue
		}
		stopCtx, cancel := context.WithTimeout(ctx, StopTimeout)
		err := e.Stop(stopCtx)
		cancel()
		e.started = false
		if err != nil {
			r.log.Warn("component failed to stop", logger.Fields(
				logger.FieldComponent, e.Name(),
				logger.FieldError, err.Error(),
			))
			errs = append(errs, fmt.Errorf("stop %s: %w", e.Name(), err))
			continue
		}
		r.log.Debug("component stopped", logger.Fields(logger.FieldComponent, e.Name()))
	}
	return stderrors.Join(errs...)
}

// HealthAll asks every registered component for its health.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Health(ctx))
	}
	return out
}

// Runners returns the started components that implement Runner.
func (r *Registry) Runners() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Component
	for _, e := range r.entries {
		if _, ok := e.Component.(Runner); ok && e.started {
			out = append(out, e.Component)
		}
	}
	return out
}

// Get returns the named component, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.byName[name]; ok {
		return e.Component
	}
	return nil
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Component, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Component
	}
	return out
}
