package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/streambot/component"
)

// HealthChecker reports the current health of each registered component.
type HealthChecker func(ctx context.Context) []component.Health

type healthReport struct {
	Status     component.HealthStatus `json:"status"`
	Service    string                 `json:"service"`
	Timestamp  string                 `json:"timestamp"`
	Components []component.Health     `json:"components"`
}

// Health serves the worst status among the components; 503 once any is
// unhealthy, e.g. after the database was closed.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := healthReport{
			Status:    component.StatusHealthy,
			Service:   serviceName,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if checker != nil {
			report.Components = checker(c.Request.Context())
		}
		for _, h := range report.Components {
			switch h.Status {
			case component.StatusUnhealthy:
				report.Status = component.StatusUnhealthy
			case component.StatusDegraded:
				if report.Status == component.StatusHealthy {
					report.Status = component.StatusDegraded
				}
			}
		}
		code := http.StatusOK
		if report.Status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	}
}
