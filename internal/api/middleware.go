// internal/api/middleware.go
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"scholarship-workflow/internal/common/observability"
)

// RequestMetrics records every request as a workflow operation, keyed by the
// route template, with its outcome class and duration.
func RequestMetrics(obs *observability.Observability) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		op := c.FullPath()
		if op == "" {
			op = "unmatched"
		}

		status := "ok"
		switch {
		case c.Writer.Status() >= 500:
			status = "error"
		case c.Writer.Status() >= 400:
			status = "rejected"
		}

		obs.RecordOperation(c.Request.Context(), op, status)
		obs.RecordDuration(c.Request.Context(), op, time.Since(start))
	}
}
