package configs

// AppVersion 构建版本，可通过 -ldflags "-X github.com/yeisme/studiovault/pkg/configs.AppVersion=..." 覆盖.
var AppVersion = "0.1.0"
