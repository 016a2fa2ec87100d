package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Router serves /metrics and /healthz.
func (m *Metrics) Router(checks map[string]HealthCheck) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	h := promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
	r.GET("/metrics", func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	})

	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		result := gin.H{}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				result[name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			result[name] = "ok"
		}
		c.JSON(code, result)
	})

	return r
}

// NewHTTPServer builds the side server for metrics and health.
func (m *Metrics) NewHTTPServer(host, port string, checks map[string]HealthCheck) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           m.Router(checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
