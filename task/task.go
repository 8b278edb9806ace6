package task

import "context"

// Task is a named, long-running unit of work whose failure is fatal.
type Task interface {
	Name() string
	Run(ctx context.Context) error

	joinable()
}

type fn struct {
	name string
	run  func(ctx context.Context) error
}

func (f *fn) Name() string                  { return f.name }
func (f *fn) Run(ctx context.Context) error { return f.run(ctx) }
func (f *fn) joinable()                     {}

// New wraps run as a joinable Task.
func New(name string, run func(ctx context.Context) error) Task {
	return &fn{name: name, run: run}
}

// Detached is a fire-and-forget side effect. Its error never reaches the
// join set; a Spawner logs it instead.
type Detached func(ctx context.Context) error
