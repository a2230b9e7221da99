package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/studiovault/pkg/scheduler"
)

type schedulerKey struct{}

// SchedulerMiddleware 将调度器注入到请求上下文.
func SchedulerMiddleware(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), schedulerKey{}, sched))
		c.Next()
	}
}

// GetScheduler 从请求上下文获取调度器，未注入时返回 nil.
func GetScheduler(c *gin.Context) *scheduler.Scheduler {
	sched, _ := c.Request.Context().Value(schedulerKey{}).(*scheduler.Scheduler)

	return sched
}
