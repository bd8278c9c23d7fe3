// File: internal/middleware/metrics.go
package middleware

import (
	"time"

	"prompthub_backend/internal/metrics"

	"github.com/gin-gonic/gin"
)

// HTTPMetrics records every response's method, status and latency.
func HTTPMetrics(recorder metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		recorder.RecordHTTPRequest(c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
