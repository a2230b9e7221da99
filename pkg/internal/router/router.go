// Package router 把处理器绑定到 gin 路由组，并按角色挂载权限、熔断与响应缓存中间件.
package router

import (
	"time"

	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/studiovault/pkg/cache"
	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/middleware"
)

// Options 路由注册选项.
type Options struct {
	// StatusCache 为 nil 或 StatusCacheTTL 为 0 时状态接口不缓存
	StatusCache    *appcache.Cache
	StatusCacheTTL time.Duration
	Breaker        configs.CircuitBreakerConfig
	RateLimit      configs.RateLimitConfig
}

// Register 注册全部业务路由:
//
//	/health/*             健康检查（无需认证）
//	/storage/status       GET  viewer
//	/storage/reconcile    POST admin
//	/media/upload         POST editor
//	/media?key=           DELETE editor
//	/media/folder         DELETE editor
//	/media/url            GET  viewer
//	/scheduler/*          admin
func Register(g *gin.RouterGroup, opts Options) {
	RegisterHealthCheckRoute(g)
	RegisterStorageRoutes(g, opts)
	RegisterMediaRoutes(g, opts)
	RegisterSchedulerRoutes(g)
}

// purge 写操作成功后清理状态缓存；未启用缓存时为空操作.
func purge(opts Options) gin.HandlerFunc {
	if opts.StatusCache == nil || opts.StatusCacheTTL <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return middleware.PurgeCacheMiddleware(opts.StatusCache)
}
