// Package main 启动 studiovault.
package main

import (
	"os"

	"github.com/yeisme/studiovault/pkg/cmd"
)

//	@title			StudioVault API
//	@version		1.0
//	@description	StudioVault 管理摄影工作室的媒体文件与存储用量账本：上传前检查配额，上传成功后记账，支持全量对账。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
