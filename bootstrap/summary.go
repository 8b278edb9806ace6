package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/streambot/component"
	"github.com/kbukum/streambot/credential"
)

// InfrastructureInfo holds detailed infrastructure component information.
type InfrastructureInfo struct {
	Name    string
	Type    string // e.g. "database", "server", "chat"
	Details string
	Port    int
}

// RouteInfo represents a registered HTTP route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// CredentialInfo is an acquired credential as shown at startup.
type CredentialInfo struct {
	Identity string
	Expiry   time.Time
}

// Summary tracks and displays the application bootstrap process.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	infrastructure  []InfrastructureInfo
	routes          []RouteInfo
	credentials     []CredentialInfo
	tasks           []string
	out             io.Writer
}

// NewSummary creates a new bootstrap summary tracker writing to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
		out:         os.Stdout,
	}
}

// SetOutput redirects the printed summary.
func (s *Summary) SetOutput(w io.Writer) {
	s.out = w
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackInfrastructure adds an infrastructure component with detailed metadata.
func (s *Summary) TrackInfrastructure(name, componentType, details string, port int) {
	s.infrastructure = append(s.infrastructure, InfrastructureInfo{
		Name:    name,
		Type:    componentType,
		Details: details,
		Port:    port,
	})
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, RouteInfo{
		Method:  method,
		Path:    path,
		Handler: handler,
	})
}

// TrackCredential records an acquired credential.
func (s *Summary) TrackCredential(identity string, expiry time.Time) {
	s.credentials = append(s.credentials, CredentialInfo{Identity: identity, Expiry: expiry})
}

// Collect fills the summary from the registry, the acquired credentials
// and the join set. Earlier collected entries are replaced.
func (s *Summary) Collect(registry *component.Registry, creds *credential.Set, tasks []string) {
	s.infrastructure = s.infrastructure[:0]
	s.routes = s.routes[:0]
	s.credentials = s.credentials[:0]

	if registry != nil {
		for _, c := range registry.All() {
			if d, ok := c.(component.Describable); ok {
				desc := d.Describe()
				name := desc.Name
				if name == "" {
					name = c.Name()
				}
				s.TrackInfrastructure(name, desc.Type, desc.Details, desc.Port)
			}
			if rp, ok := c.(component.RouteProvider); ok {
				for _, r := range rp.Routes() {
					s.TrackRoute(r.Method, r.Path, r.Handler)
				}
			}
		}
	}
	if creds != nil {
		for _, id := range creds.Identities() {
			cred, _ := creds.Get(id)
			s.TrackCredential(id.String(), cred.Cell.Expiry())
		}
	}
	s.tasks = append(s.tasks[:0], tasks...)
}

// DisplaySummary prints the bootstrap summary including live health from the registry.
func (s *Summary) DisplaySummary(registry *component.Registry) {
	w := s.out
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "🚀 %s v%s started in %.2fs\n\n",
		s.serviceName, s.version, s.startupDuration.Seconds())

	if len(s.infrastructure) > 0 {
		fmt.Fprintf(w, "📊 Infrastructure\n")
		for i, inf := range s.infrastructure {
			details := inf.Details
			if inf.Port > 0 {
				details = fmt.Sprintf("%s (:%d)", details, inf.Port)
			}
			fmt.Fprintf(w, "   %s %s [%s]: %s\n", treePrefix(i, len(s.infrastructure)), inf.Name, inf.Type, details)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(s.credentials) > 0 {
		fmt.Fprintf(w, "🔑 Credentials\n")
		for i, c := range s.credentials {
			expiry := "no expiry"
			if !c.Expiry.IsZero() {
				expiry = "expires " + c.Expiry.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "   %s %s (%s)\n", treePrefix(i, len(s.credentials)), c.Identity, expiry)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(s.tasks) > 0 {
		fmt.Fprintf(w, "⚙️  Tasks (%d)\n", len(s.tasks))
		for i, t := range s.tasks {
			fmt.Fprintf(w, "   %s %s\n", treePrefix(i, len(s.tasks)), t)
		}
	} else {
		fmt.Fprintf(w, "   └── No tasks joined\n")
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", treePrefix(i, len(s.routes)), r.Method, r.Path, r.Handler)
		}
	}

	if registry != nil {
		healthResults := registry.HealthAll(context.Background())
		if len(healthResults) > 0 {
			fmt.Fprintf(w, "\n🏥 Health Check\n")
			for i, h := range healthResults {
				msg := ""
				if h.Message != "" {
					msg = " (" + h.Message + ")"
				}
				fmt.Fprintf(w, "   %s %s %s: %s%s\n", treePrefix(i, len(healthResults)),
					healthStatusIcon(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
			}
		}
	}

	fmt.Fprintf(w, "\n")
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
