// Package api 组装对外 HTTP 接口的版本化路由组.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/studiovault/pkg/internal/router"
)

// Version 当前 API 版本前缀.
const Version = "/api/v1"

// RegisterGroup 在 /api/v1 下注册全部业务路由.
func RegisterGroup(e *gin.Engine, opts router.Options) *gin.RouterGroup {
	g := e.Group(Version)
	router.Register(g, opts)

	return g
}
