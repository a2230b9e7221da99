package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/studiovault/pkg/metrics"
)

// PrometheusMiddleware 按路由模板记录请求数、耗时与在途请求数.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		metrics.ActiveConnections.Inc()
		defer metrics.ActiveConnections.Dec()

		c.Next()

		// 未匹配路由统一记为 unmatched，避免路径参数撑爆标签基数
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		method := c.Request.Method
		metrics.RequestCounter.WithLabelValues(method, route).Inc()
		metrics.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
