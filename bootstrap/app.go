package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/streambot/component"
	"github.com/kbukum/streambot/credential"
	"github.com/kbukum/streambot/errors"
	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/task"
)

// Phase names the orchestrator state, used in log lines.
type Phase string

const (
	PhaseStartingWeb  Phase = "starting-web"
	PhaseAcquiring    Phase = "acquiring"
	PhaseConstructing Phase = "constructing"
	PhaseRunning      Phase = "running"
	PhaseTerminated   Phase = "terminated"
)

// App is the bootstrap orchestrator. The type parameter C is the config
// type; any struct embedding config.ServiceConfig satisfies Config.
//
// Run walks the phases in order: start components (the web server hosts
// the OAuth redirect, so it is up first), acquire every required
// credential concurrently, run the configure callbacks that construct the
// subsystems, then join every task until the first failure or shutdown.
//
//	app, err := bootstrap.NewApp(cfg, bootstrap.WithAcquirer(oauth))
//	app.RegisterComponent(web)
//	app.RequireCredential(credential.Spotify, credential.TwitchStreamer)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*Config]) error {
//	    return a.Go(notifier.Task())
//	})
//	err = app.Run(ctx)
type App[C Config] struct {
	Name        string
	Version     string
	Cfg         C
	Components  *component.Registry
	Credentials *credential.Set
	Logger      *logger.Logger
	Summary     *Summary

	acquirer        credential.Acquirer
	required        []credential.Identity
	tasks           *task.Set
	spawner         *task.Spawner
	gracefulTimeout time.Duration
	logCloser       io.Closer
	onConfigure     []func(ctx context.Context, app *App[C]) error

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewApp creates a new application instance from a typed config.
// It applies defaults, validates the config, and initializes the logger.
// Validation failures are CONFIGURATION_ERROR.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return nil, err
		}
		return nil, errors.Configuration(err.Error()).WithCause(err)
	}

	base := cfg.GetServiceConfig()

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		Credentials:     credential.NewSet(),
		tasks:           task.NewSet(),
		gracefulTimeout: 15 * time.Second,
		logCloser:       nopCloser{},
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	app.acquirer = o.acquirer

	if o.logger != nil {
		app.Logger = o.logger
	} else {
		closer, err := logger.Init(base.Logging, base.Name)
		if err != nil {
			return nil, errors.Configuration("invalid logging configuration").WithCause(err)
		}
		app.logCloser = closer
		app.Logger = logger.GetGlobalLogger()
	}

	app.tasks.OnFailure = func(name string, err error) {
		app.Logger.Error("Task failed, cancelling the join set", logger.Fields(
			logger.FieldTask, name,
			logger.FieldError, err.Error(),
		))
	}

	app.Summary = NewSummary(base.Name, base.Version)
	return app, nil
}

// RegisterComponent adds a component to the application's registry.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// RequireCredential adds identities to the acquisition plan. Each identity
// may be requested once per run.
func (a *App[C]) RequireCredential(ids ...credential.Identity) error {
	for _, id := range ids {
		for _, have := range a.required {
			if have == id {
				return errors.Configuration(fmt.Sprintf("credential %s requested twice", id))
			}
		}
		a.required = append(a.required, id)
	}
	return nil
}

// SetAcquirer replaces the acquirer used in the acquiring phase. Flows
// usually need the validated config, so they are built after NewApp.
func (a *App[C]) SetAcquirer(acq credential.Acquirer) {
	a.acquirer = acq
}

// Required returns the identities that will be acquired, in request order.
func (a *App[C]) Required() []credential.Identity {
	return append([]credential.Identity(nil), a.required...)
}

// OnConfigure registers a callback for the construct phase. Callbacks run
// sequentially after every credential was acquired and add their subsystem
// tasks with Go.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// Go adds t to the join set.
func (a *App[C]) Go(t task.Task) error {
	return a.tasks.Add(t)
}

// Tasks returns the join set member names in insertion order.
func (a *App[C]) Tasks() []string {
	return a.tasks.Names()
}

// Spawner returns the runner for detached side effects. It is nil before
// Start.
func (a *App[C]) Spawner() *task.Spawner {
	return a.spawner
}

// ReadyCheck verifies that all registered components are healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	results := a.Components.HealthAll(ctx)
	var unhealthy []string
	for _, h := range results {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run executes the full lifecycle and returns the terminal result: nil when
// ctx was cancelled or a shutdown signal arrived before any failure,
// otherwise the first error from startup or from the join set.
func (a *App[C]) Run(ctx context.Context) error {
	ctx, cancel := signalContext(ctx, a.Logger)
	defer cancel()

	err := a.Start(ctx)
	if err == nil {
		a.phase(PhaseRunning, logger.Fields("tasks", a.tasks.Len()))
		err = a.tasks.Run(ctx)
	} else if ctx.Err() != nil && isCancellation(err) {
		// Shutdown while waiting on an authorization is not a failure.
		err = nil
	}

	a.phase(PhaseTerminated)
	if stopErr := a.stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

// Start runs every phase up to, but not including, the join. On error no
// subsystem has been constructed; components that did start are left for
// Shutdown.
func (a *App[C]) Start(ctx context.Context) error {
	start := time.Now()

	a.Logger.Info("Starting application", map[string]interface{}{
		"name":    a.Name,
		"version": a.Version,
	})
	a.spawner = task.NewSpawner(ctx, a.Logger.WithComponent("detached"))

	a.phase(PhaseStartingWeb)
	if err := a.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	a.phase(PhaseAcquiring, logger.Fields("requests", len(a.required)))
	if err := a.acquire(ctx); err != nil {
		return err
	}

	a.phase(PhaseConstructing)
	if err := a.configure(ctx); err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}

	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.DisplaySummary()
	return nil
}

// initialize starts all registered components and adds their background
// loops to the join set.
func (a *App[C]) initialize(ctx context.Context) error {
	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start components: %w", err)
	}
	for _, c := range a.Components.Runners() {
		if err := a.tasks.Add(task.New(c.Name(), c.(component.Runner).Run)); err != nil {
			return err
		}
	}
	return nil
}

// acquire obtains every required credential. No partial set is kept: on
// failure Credentials stays empty and no renewal task joins.
func (a *App[C]) acquire(ctx context.Context) error {
	if len(a.required) == 0 {
		return nil
	}
	if a.acquirer == nil {
		return errors.Configuration("credentials are required but no acquirer is configured")
	}

	a.Logger.Info("Waiting for authorization; construction is blocked until every flow completes", logger.Fields(
		"identities", identityNames(a.required),
	))

	start := time.Now()
	creds, renewals, err := credential.AcquireAll(ctx, a.acquirer, a.required)
	if err != nil {
		if ctx.Err() == nil {
			a.Logger.Error("Acquisition failed, nothing will be constructed", logger.ErrorFields("acquire", err))
		}
		return err
	}
	a.Logger.Info("All credentials acquired", logger.DurationFields("acquire", time.Since(start)))
	for _, t := range renewals {
		if err := a.tasks.Add(t); err != nil {
			return err
		}
	}
	a.Credentials = creds
	return nil
}

// configure runs the construct-phase callbacks in registration order.
func (a *App[C]) configure(ctx context.Context) error {
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// DisplaySummary prints the startup summary.
func (a *App[C]) DisplaySummary() {
	a.Summary.Collect(a.Components, a.Credentials, a.tasks.Names())
	a.Summary.DisplaySummary(a.Components)
}

// Shutdown stops components and waits for detached work. Use when managing
// the lifecycle with Start instead of Run.
func (a *App[C]) Shutdown(ctx context.Context) error {
	return a.stop()
}

// Close releases the log file opened by NewApp.
func (a *App[C]) Close() error {
	return a.logCloser.Close()
}

// stop gracefully shuts down all components within the graceful timeout.
func (a *App[C]) stop() error {
	a.Logger.Info("Shutting down application", map[string]interface{}{
		"timeout": a.gracefulTimeout.String(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error

	if err := runStopHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", map[string]interface{}{
			"error": err.Error(),
		})
		shutdownErr = err
	}

	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", map[string]interface{}{
			"error": err.Error(),
		})
		if shutdownErr == nil {
			shutdownErr = err
		}
	}

	if a.spawner != nil {
		if err := a.spawner.Wait(ctx); err != nil {
			a.Logger.Warn("Detached tasks still running at shutdown", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	a.Logger.Info("Application shutdown complete")
	return shutdownErr
}

func (a *App[C]) phase(p Phase, fields ...map[string]interface{}) {
	f := logger.Fields(logger.FieldPhase, string(p))
	for _, extra := range fields {
		for k, v := range extra {
			f[k] = v
		}
	}
	a.Logger.Info("Bootstrap phase", f)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context, log *logger.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			log.Info("Received shutdown signal, graceful shutdown starting", map[string]interface{}{
				"signal": sig.String(),
			})
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func identityNames(ids []credential.Identity) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	return names
}

func isCancellation(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
