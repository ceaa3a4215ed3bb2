package middleware

import (
	"context"
	"slices"
	"strings"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// profilingLabelResource groups routes by their first path segment
const profilingLabelResource = "resource"

// ProfilingConfig holds configuration for the profiling middleware
type ProfilingConfig struct {
	Enabled bool
	// SkipPaths are paths that don't need profiling labels, such as health checks
	SkipPaths []string
}

// DefaultProfilingConfig returns default profiling middleware configuration
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:   true,
		SkipPaths: []string{"/health", "/api/v1/health"},
	}
}

// Profiling attaches Pyroscope labels (route, method and resource) to the
// CPU samples taken while the request is handled
func Profiling(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		route := c.FullPath()
		labels := telemetry.HTTPRequestLabels(route, c.Request.Method)
		if resource := resourceFromRoute(route); resource != "" {
			labels[profilingLabelResource] = resource
		}

		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceFromRoute returns the first segment after the API prefix.
// "/api/v1/transactions/:id/void" gives "transactions".
func resourceFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) || strings.HasPrefix(part, ":") {
			continue
		}
		return part
	}
	return ""
}

func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}
