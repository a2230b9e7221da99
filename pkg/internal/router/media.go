package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/studiovault/pkg/internal/handle"
	"github.com/yeisme/studiovault/pkg/middleware"
)

// RegisterMediaRoutes 注册媒体上传、删除与读取链接路由.
// 写操作共用一个熔断器，对象存储持续故障时快速失败；上传另有独立限流.
func RegisterMediaRoutes(g *gin.RouterGroup, opts Options) {
	media := g.Group("/media")

	media.GET("/url", middleware.RequireMinRole(middleware.RoleViewer), handle.MediaURL)

	writes := media.Group("",
		middleware.RequireMinRole(middleware.RoleEditor),
		middleware.CircuitBreakerMiddleware(opts.Breaker),
		purge(opts),
	)
	{
		writes.POST("/upload", middleware.UploadRateLimitMiddleware(opts.RateLimit), handle.UploadMedia)
		writes.DELETE("", handle.DeleteMedia)
		writes.DELETE("/folder", handle.DeleteMediaFolder)
	}
}
