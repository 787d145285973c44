package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cutroom/cutroom-backend/internal/metrics"
)

// Metrics records the duration of every request by route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
