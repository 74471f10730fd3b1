package middleware

import (
	"context"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
)

// Profiling attaches route, method and company labels to CPU profiles of the request.
// Mount it after Identity so the company label is known.
func Profiling(enabled bool, skipPaths ...string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if slices.Contains(skipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}
		labels := telemetry.HTTPRequestLabels(c.FullPath(), c.Request.Method, GetCompanyID(c))
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
