package component

import "context"

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health is one entry of the /health report.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is infrastructure with a lifecycle: the web server and the
// database. Subsystems that only exist after credentials are acquired
// are tasks, not components.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Runner is a component with a loop that outlives Start. Run joins the
// task set: it blocks until ctx is cancelled and returns an error if the
// loop ends on its own.
type Runner interface {
	Run(ctx context.Context) error
}

// Description is a component's line in the startup summary.
type Description struct {
	// Name defaults to the component's Name().
	Name    string
	Type    string
	Details string
	Port    int
}

type Describable interface {
	Describe() Description
}

// Route is an HTTP route listed in the startup summary.
type Route struct {
	Method  string
	Path    string
	Handler string
}

type RouteProvider interface {
	Routes() []Route
}
