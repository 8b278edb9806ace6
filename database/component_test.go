package database

import (
	"context"
	"testing"

	"github.com/kbukum/streambot/component"
	"github.com/kbukum/streambot/logger"
)

func startMemory(t *testing.T) *Component {
	t.Helper()
	comp := NewComponent(Config{URL: ":memory:"}, logger.NewDefault("test"))
	if err := comp.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { comp.Stop(context.Background()) })
	return comp
}

func TestComponent_Name(t *testing.T) {
	comp := NewComponent(Config{URL: ":memory:"}, logger.NewDefault("test"))
	if got := comp.Name(); got != "database" {
		t.Errorf("Name() = %q, want database", got)
	}
	var _ component.Component = comp
	var _ component.Describable = comp
}

func TestComponent_HealthBeforeStart(t *testing.T) {
	comp := NewComponent(Config{URL: ":memory:"}, logger.NewDefault("test"))
	h := comp.Health(context.Background())
	if h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if comp.Store() != nil || comp.DB() != nil {
		t.Error("expected nil store and db before start")
	}
	if err := comp.Stop(context.Background()); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	comp := startMemory(t)
	ctx := context.Background()

	if h := comp.Health(ctx); h.Status != component.StatusHealthy {
		t.Fatalf("expected healthy, got %s (%s)", h.Status, h.Message)
	}
	if comp.Store() == nil {
		t.Fatal("expected store after start")
	}

	if err := comp.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := comp.DB().Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestComponent_StartInvalidURL(t *testing.T) {
	comp := NewComponent(Config{URL: "mysql://nope"}, logger.NewDefault("test"))
	if err := comp.Start(context.Background()); err == nil {
		t.Fatal("expected error for unsupported url")
	}
}

func TestComponent_Describe(t *testing.T) {
	comp := NewComponent(Config{URL: "sqlite:bot.db"}, logger.NewDefault("test"))
	d := comp.Describe()
	if d.Type != "database" || d.Details != "sqlite3 bot.db" {
		t.Errorf("unexpected description %+v", d)
	}
}
