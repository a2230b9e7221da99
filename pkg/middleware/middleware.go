// Package middleware 提供 gin 中间件：认证与角色、限流、熔断、追踪、指标、日志、响应缓存，
// 以及把存储、账本、调度器注入请求上下文.
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodyMiddleware 限制请求体大小，超出时读取请求体返回 *http.MaxBytesError.
func MaxBodyMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}

// IsBodyTooLarge 判断错误是否来自 MaxBodyMiddleware 的限制.
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError

	return errors.As(err, &mbe)
}
