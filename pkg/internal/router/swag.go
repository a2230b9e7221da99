package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yeisme/studiovault/docs"
	"github.com/yeisme/studiovault/pkg/configs"
)

// RegisterSwaggerRoute 仅在调试模式下挂载 /swagger 文档.
func RegisterSwaggerRoute(r *gin.Engine, cfg configs.ServerConfig) bool {
	if !cfg.Debug {
		return false
	}

	docs.SwaggerInfo.Host = cfg.Addr()
	docs.SwaggerInfo.Version = configs.AppVersion

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.DefaultModelsExpandDepth(-1)))

	return true
}
