package task

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/streambot/errors"
	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/observability"
)

// Set is the join set: every member runs concurrently and the first failure
// cancels the rest.
type Set struct {
	mu      sync.Mutex
	tasks   []Task
	names   map[string]bool
	running bool

	// OnFailure, when set, observes the failure that ends the run.
	OnFailure func(name string, err error)
	// Metrics counts every member failure, not only the first.
	Metrics *observability.Metrics
}

// NewSet creates an empty join set recording to the default instruments.
func NewSet() *Set {
	return &Set{names: make(map[string]bool), Metrics: observability.Default()}
}

// Add appends t. Names must be unique and the set must not be running.
func (s *Set) Add(t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("task %s: join set is already running", t.Name())
	}
	if s.names[t.Name()] {
		return fmt.Errorf("task %s already in join set", t.Name())
	}
	s.names[t.Name()] = true
	s.tasks = append(s.tasks, t)
	return nil
}

// Len returns the number of members.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Names returns member names in insertion order.
func (s *Set) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.tasks))
	for _, t := range s.tasks {
		names = append(names, t.Name())
	}
	return names
}

// Run executes every member and blocks until all have returned. The result
// is the first failure, wrapped as TASK_FAILED with the task's name, or nil
// when ctx was cancelled before any member failed. A member that returns nil
// while ctx is still live has stopped unexpectedly and counts as a failure.
func (s *Set) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("join set is already running")
	}
	s.running = true
	tasks := append([]Task(nil), s.tasks...)
	s.mu.Unlock()

	log := logger.WithComponent("tasks")
	g, gctx := errgroup.WithContext(ctx)

	var once sync.Once
	var first error
	fail := func(name string, err error) error {
		s.Metrics.RecordTaskFailure(ctx, name)
		once.Do(func() {
			first = errors.TaskFailed(name, err)
			if s.OnFailure != nil {
				s.OnFailure(name, err)
			}
		})
		return err
	}

	for _, t := range tasks {
		t := t
		g.Go(func() error {
			err := t.Run(gctx)
			switch {
			case err == nil && gctx.Err() == nil:
				return fail(t.Name(), errStoppedEarly)
			case err == nil:
				return nil
			case ctx.Err() != nil && isCancellation(err):
				// External shutdown, not a failure.
				return nil
			case gctx.Err() != nil && isCancellation(err):
				// Cancelled because a sibling failed.
				return nil
			default:
				log.Error("task failed", logger.Fields(logger.FieldTask, t.Name(), logger.FieldError, err.Error()))
				return fail(t.Name(), err)
			}
		})
	}

	_ = g.Wait()
	return first
}

var errStoppedEarly = stderrors.New("task stopped without error before shutdown")

func isCancellation(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
