package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// InitMeter installs the global meter provider.
func InitMeter(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the service instruments. A nil *Metrics records nothing.
type Metrics struct {
	acquisitionDuration metric.Float64Histogram
	renewals            metric.Int64Counter
	taskFailures        metric.Int64Counter
	detachedFailures    metric.Int64Counter
	commands            metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	acquisitionDuration, err := meter.Float64Histogram("credential.acquisition.duration",
		metric.WithDescription("Wall-clock time to obtain a credential, including interactive authorization"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating credential.acquisition.duration histogram: %w", err)
	}

	renewals, err := meter.Int64Counter("credential.renewal.total",
		metric.WithDescription("Token refreshes by identity and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating credential.renewal.total counter: %w", err)
	}

	taskFailures, err := meter.Int64Counter("task.failure.total",
		metric.WithDescription("Join-set task failures"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating task.failure.total counter: %w", err)
	}

	detachedFailures, err := meter.Int64Counter("task.detached.failure.total",
		metric.WithDescription("Fire-and-forget side effects that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating task.detached.failure.total counter: %w", err)
	}

	commands, err := meter.Int64Counter("chat.command.total",
		metric.WithDescription("Chat commands handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chat.command.total counter: %w", err)
	}

	return &Metrics{
		acquisitionDuration: acquisitionDuration,
		renewals:            renewals,
		taskFailures:        taskFailures,
		detachedFailures:    detachedFailures,
		commands:            commands,
	}, nil
}

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Default returns instruments on the global meter. Until Init installs a
// provider they are no-ops; afterwards the global delegate forwards to it.
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(Meter(defaultTracerName))
		if err == nil {
			defaultMetrics = m
		}
	})
	return defaultMetrics
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordAcquisition records how long one credential took to obtain.
func (m *Metrics) RecordAcquisition(ctx context.Context, identity string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.acquisitionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(AttrIdentity, identity),
		attribute.String(AttrOutcome, outcome(err)),
	))
}

// RecordRenewal records one refresh attempt cycle.
func (m *Metrics) RecordRenewal(ctx context.Context, identity string, err error) {
	if m == nil {
		return
	}
	m.renewals.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrIdentity, identity),
		attribute.String(AttrOutcome, outcome(err)),
	))
}

// RecordTaskFailure records a failed join-set task.
func (m *Metrics) RecordTaskFailure(ctx context.Context, task string) {
	if m == nil {
		return
	}
	m.taskFailures.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrTask, task)))
}

// RecordDetachedFailure records a failed fire-and-forget side effect.
func (m *Metrics) RecordDetachedFailure(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.detachedFailures.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrTask, name)))
}

// RecordCommand records a handled chat command.
func (m *Metrics) RecordCommand(ctx context.Context, command string, err error) {
	if m == nil {
		return
	}
	m.commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrCommand, command),
		attribute.String(AttrOutcome, outcome(err)),
	))
}
