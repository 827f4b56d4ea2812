package middleware

import (
	"context"

	"github.com/erp/salesengine/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Profiling labels the profiler samples taken while serving a request with
// its route, e.g. "POST /api/v1/sales". Health checks are skipped.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || route == "/health" {
			c.Next()
			return
		}
		telemetry.WithOperationLabels(c.Request.Context(), c.Request.Method+" "+route, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
