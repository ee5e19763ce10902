package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sqlpanel/internal/database"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error {
	return f(ctx)
}

type HealthResponse struct {
	Status       string                        `json:"status"`
	Timestamp    time.Time                     `json:"timestamp"`
	Service      string                        `json:"service"`
	Version      string                        `json:"version"`
	Dependencies map[string]DependencyStatus   `json:"dependencies"`
	Connectors   map[string]database.PoolStats `json:"connectors"`
}

type DependencyStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type HealthController struct {
	version    string
	deps       map[string]Pinger
	connectors *database.ConnectorManager
}

// NewHealthController reports on the named dependencies; a nil entry means
// the dependency is not configured.
func NewHealthController(version string, deps map[string]Pinger, connectors *database.ConnectorManager) *HealthController {
	return &HealthController{version: version, deps: deps, connectors: connectors}
}

func (hc *HealthController) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now(),
		Service:      "sqlpanel",
		Version:      hc.version,
		Dependencies: make(map[string]DependencyStatus, len(hc.deps)),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	for name, dep := range hc.deps {
		switch {
		case dep == nil:
			resp.Dependencies[name] = DependencyStatus{Status: "disabled"}
		default:
			if err := dep.PingContext(ctx); err != nil {
				resp.Status = "degraded"
				resp.Dependencies[name] = DependencyStatus{Status: "unreachable", Message: err.Error()}
			} else {
				resp.Dependencies[name] = DependencyStatus{Status: "connected"}
			}
		}
	}

	if hc.connectors != nil {
		resp.Connectors = hc.connectors.GetStats()
	}

	// degraded dependencies still answer 200
	c.JSON(http.StatusOK, resp)
}
