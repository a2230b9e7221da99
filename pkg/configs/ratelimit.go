package configs

import "github.com/spf13/viper"

// 限流维度.
const (
	RateLimitKeyGlobal = "global"
	RateLimitKeyIP     = "ip"
	RateLimitKeyUser   = "user" // 认证后的用户，未认证时退回客户端 IP
)

const (
	DefaultRateLimitEnabled     = false
	DefaultRateLimitRPS         = 50.0
	DefaultRateLimitBurst       = 100
	DefaultRateLimitKey         = RateLimitKeyIP
	DefaultUploadRateLimitRPS   = 2.0
	DefaultUploadRateLimitBurst = 20
)

// RateLimitConfig HTTP 层的请求限流，与账本的每日上传次数配额相互独立.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"   rule:"min=0"` // 全部 API 每秒允许的请求数
	Burst   int     `mapstructure:"burst" rule:"min=0"`
	// Key 限流维度：global、ip、user 或 header:Header-Name
	Key string `mapstructure:"key"`
	// Upload 上传路由的额外限流，按 Key 同一维度计数；RPS 为 0 时不启用
	Upload UploadRateLimitConfig `mapstructure:"upload"`
}

// UploadRateLimitConfig 上传请求的限流. 每次上传都会占用当日上传次数，
// 批量导入照片时在这里削峰，避免短时间内耗尽当日配额.
type UploadRateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"   rule:"min=0"`
	Burst int     `mapstructure:"burst" rule:"min=0"`
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit.burst", DefaultRateLimitBurst)
	v.SetDefault("rate_limit.key", DefaultRateLimitKey)
	v.SetDefault("rate_limit.upload.rps", DefaultUploadRateLimitRPS)
	v.SetDefault("rate_limit.upload.burst", DefaultUploadRateLimitBurst)
}
