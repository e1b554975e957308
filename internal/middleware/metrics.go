package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/report-card-api/internal/service"
)

// Metrics times every request and feeds the Prometheus collectors plus the
// aggregate counters surfaced by the status endpoint.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
