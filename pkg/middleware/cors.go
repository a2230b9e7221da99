package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/studiovault/pkg/configs"
)

// CORSMiddleware 允许前端跨域访问，调试模式下放开全部来源.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = append(config.AllowHeaders, "Authorization", "X-Role", "If-None-Match")
	config.ExposeHeaders = []string{"ETag", "X-Cache", "Age"}
	config.MaxAge = 12 * time.Hour

	if cfg.Debug {
		config.AllowAllOrigins = true
		config.AllowOrigins = nil
	}

	return cors.New(config)
}
