package middleware

import (
	"strconv"
	"time"

	"github.com/ds124wfegd/afritix/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records latency per route template, not per raw path.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
