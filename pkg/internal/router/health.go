package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/studiovault/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册健康检查路由.
func RegisterHealthCheckRoute(g *gin.RouterGroup) {
	healthRoutes := g.Group("/health")
	{
		healthRoutes.GET("/ready", handle.HealthReady)
		healthRoutes.GET("/db", handle.HealthDB)
		healthRoutes.GET("/objects", handle.HealthObjects)
		healthRoutes.GET("/kv", handle.HealthKV)
		healthRoutes.GET("/mq", handle.HealthMQ)
		healthRoutes.GET("/ledger", handle.HealthLedger)
	}
}
