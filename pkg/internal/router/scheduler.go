package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/studiovault/pkg/internal/handle"
	"github.com/yeisme/studiovault/pkg/middleware"
)

// RegisterSchedulerRoutes 注册调度器相关路由，仅管理员可用.
func RegisterSchedulerRoutes(g *gin.RouterGroup) {
	sched := g.Group("/scheduler", middleware.RequireMinRole(middleware.RoleAdmin))
	{
		sched.GET("/jobs", handle.SchedulerJobs)
		sched.POST("/jobs/:name/run", handle.SchedulerRunJob)
		sched.POST("/jobs/stop", handle.SchedulerStopJobs)
		sched.DELETE("/jobs/:id", handle.SchedulerRemoveJob)
		sched.GET("/queue/waiting", handle.SchedulerQueueWaiting)
	}
}
