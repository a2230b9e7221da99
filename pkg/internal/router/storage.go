package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/studiovault/pkg/internal/handle"
	"github.com/yeisme/studiovault/pkg/middleware"
)

// RegisterStorageRoutes 注册用量状态与对账路由.
func RegisterStorageRoutes(g *gin.RouterGroup, opts Options) {
	storage := g.Group("/storage")

	status := []gin.HandlerFunc{middleware.RequireMinRole(middleware.RoleViewer)}
	if opts.StatusCache != nil && opts.StatusCacheTTL > 0 {
		status = append(status, middleware.CacheMiddleware(middleware.CacheConfig{
			Cache:        opts.StatusCache,
			TTL:          opts.StatusCacheTTL,
			MaxBodyBytes: middleware.DefaultMaxBodyBytes,
		}))
	}

	storage.GET("/status", append(status, handle.StorageStatus)...)
	storage.POST("/reconcile", middleware.RequireMinRole(middleware.RoleAdmin), purge(opts), handle.StorageReconcile)
}
