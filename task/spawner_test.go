package task

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	fields []map[string]interface{}
}

func (r *recordingSink) Error(msg string, fields ...map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields = append(r.fields, fields...)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fields)
}

func TestSpawnerRoutesErrorsToSink(t *testing.T) {
	sink := &recordingSink{}
	sp := NewSpawner(context.Background(), sink)

	sp.Spawn("balance-add", func(context.Context) error { return stderrors.New("db locked") })
	sp.Spawn("ok", func(context.Context) error { return nil })
	sp.Spawn("panics", func(context.Context) error { panic("boom") })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sp.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if sink.count() != 2 {
		t.Fatalf("expected 2 reported failures, got %d", sink.count())
	}
	names := map[interface{}]bool{}
	for _, f := range sink.fields {
		names[f["task"]] = true
	}
	if !names["balance-add"] || !names["panics"] {
		t.Errorf("unexpected reported tasks %v", names)
	}
}

func TestSpawnerDetachedFailureDoesNotStopJoinSet(t *testing.T) {
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	sp := NewSpawner(ctx, sink)

	s := NewSet()
	reported := make(chan struct{})
	_ = s.Add(New("chat", func(ctx context.Context) error {
		sp.Spawn("balance-add", func(context.Context) error {
			defer close(reported)
			return stderrors.New("persist failed")
		})
		<-ctx.Done()
		return ctx.Err()
	}))

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	<-reported
	select {
	case err := <-done:
		t.Fatalf("join set ended after detached failure: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
