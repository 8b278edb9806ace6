package component

import (
	"context"
	"errors"
	"slices"
	"testing"
)

type fakeComponent struct {
	name     string
	startErr error
	stopErr  error
	health   Health
	log      *[]string
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(context.Context) error {
	f.record("start")
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	f.record("stop")
	return f.stopErr
}

func (f *fakeComponent) Health(context.Context) Health { return f.health }

func (f *fakeComponent) record(op string) {
	if f.log != nil {
		*f.log = append(*f.log, op+" "+f.name)
	}
}

type runnerComponent struct {
	fakeComponent
}

func (r *runnerComponent) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func newRegistry(t *testing.T, comps ...Component) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, c := range comps {
		if err := r.Register(c); err != nil {
			t.Fatalf("Register(%s): %v", c.Name(), err)
		}
	}
	return r
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := newRegistry(t, &fakeComponent{name: "database"})
	if err := r.Register(&fakeComponent{name: "database"}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if r.Get("database") == nil || r.Get("web") != nil {
		t.Error("Get does not reflect registrations")
	}
}

func TestRegistry_StartAndStopOrder(t *testing.T) {
	var log []string
	r := newRegistry(t,
		&fakeComponent{name: "web", log: &log},
		&fakeComponent{name: "database", log: &log},
	)

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	want := []string{"start web", "start database", "stop database", "stop web"}
	if !slices.Equal(log, want) {
		t.Errorf("lifecycle = %v, want %v", log, want)
	}

	// A second StopAll finds nothing started.
	log = log[:0]
	_ = r.StopAll(context.Background())
	if len(log) != 0 {
		t.Errorf("second StopAll ran %v", log)
	}
}

func TestRegistry_StartFailureStopsOnlyStarted(t *testing.T) {
	var log []string
	locked := errors.New("database is locked")
	r := newRegistry(t,
		&fakeComponent{name: "web", log: &log},
		&fakeComponent{name: "database", startErr: locked, log: &log},
		&fakeComponent{name: "notifier", log: &log},
	)

	err := r.StartAll(context.Background())
	if !errors.Is(err, locked) {
		t.Fatalf("StartAll error = %v, want wrapped %v", err, locked)
	}
	_ = r.StopAll(context.Background())

	want := []string{"start web", "start database", "stop web"}
	if !slices.Equal(log, want) {
		t.Errorf("lifecycle = %v, want %v", log, want)
	}
}

func TestRegistry_StopErrorsAreJoined(t *testing.T) {
	errWeb := errors.New("listener busy")
	errDB := errors.New("close failed")
	r := newRegistry(t,
		&fakeComponent{name: "web", stopErr: errWeb},
		&fakeComponent{name: "database", stopErr: errDB},
	)
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := r.StopAll(context.Background())
	if !errors.Is(err, errWeb) || !errors.Is(err, errDB) {
		t.Errorf("StopAll error = %v, want both stop errors", err)
	}
}

func TestRegistry_HealthAll(t *testing.T) {
	r := newRegistry(t,
		&fakeComponent{name: "web", health: Health{Name: "web", Status: StatusHealthy}},
		&fakeComponent{name: "database", health: Health{Name: "database", Status: StatusUnhealthy, Message: "closed"}},
	)

	got := r.HealthAll(context.Background())
	if len(got) != 2 || got[0].Status != StatusHealthy || got[1].Message != "closed" {
		t.Errorf("HealthAll = %+v", got)
	}
}

func TestRegistry_RunnersAfterStart(t *testing.T) {
	r := newRegistry(t,
		&fakeComponent{name: "database"},
		&runnerComponent{fakeComponent{name: "web"}},
	)
	if got := r.Runners(); len(got) != 0 {
		t.Fatalf("Runners before start = %d, want 0", len(got))
	}
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := r.Runners()
	if len(got) != 1 || got[0].Name() != "web" {
		t.Fatalf("Runners = %v, want [web]", got)
	}
	if _, ok := got[0].(Runner); !ok {
		t.Error("runner lost its Run method")
	}
}

func TestRegistry_RunnersSkipFailedStart(t *testing.T) {
	r := newRegistry(t,
		&fakeComponent{name: "database", startErr: errors.New("locked")},
		&runnerComponent{fakeComponent{name: "web"}},
	)
	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected StartAll to fail")
	}
	if got := r.Runners(); len(got) != 0 {
		t.Errorf("Runners = %d, want 0", len(got))
	}
}
