package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/streambot/observability"
)

// Sink receives the errors of detached work.
type Sink interface {
	Error(msg string, fields ...map[string]interface{})
}

// Spawner runs Detached functions. Errors and panics are reported to the
// sink and never returned to the caller.
type Spawner struct {
	ctx  context.Context
	sink Sink
	wg   sync.WaitGroup
}

// NewSpawner creates a spawner whose work is cancelled with ctx.
func NewSpawner(ctx context.Context, sink Sink) *Spawner {
	return &Spawner{ctx: ctx, sink: sink}
}

// Spawn starts d in the background.
func (s *Spawner) Spawn(name string, d Detached) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.run(d); err != nil {
			observability.Default().RecordDetachedFailure(s.ctx, name)
			s.sink.Error("detached task failed", map[string]interface{}{
				"task":  name,
				"error": err.Error(),
			})
		}
	}()
}

func (s *Spawner) run(d Detached) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d(s.ctx)
}

// Wait blocks until every spawned function returned or ctx is done.
func (s *Spawner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
