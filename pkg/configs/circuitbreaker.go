package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultCBEnabled          = true
	DefaultCBName             = "media-writes" // 日志中的熔断器名称
	DefaultCBFailureRate      = 0.5
	DefaultCBMinRequests      = 10
	DefaultCBInterval         = time.Minute
	DefaultCBOpenTimeout      = 30 * time.Second
	DefaultCBHalfOpenRequests = 3
)

// CircuitBreakerConfig 媒体写路由（上传、删除）共用的熔断器.
// 对象存储或账本后端持续返回 5xx 时打开，直接以 503 拒绝；配额拒绝（429/507）不计为失败.
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Name             string        `mapstructure:"name"`
	FailureRate      float64       `mapstructure:"failure_rate"       rule:"gte=0,lte=1"` // 窗口内 5xx 比例阈值
	MinRequests      uint32        `mapstructure:"min_requests"`                          // 窗口内请求数达到该值才判断
	Interval         time.Duration `mapstructure:"interval"`                              // 关闭状态下计数清零的周期
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`                          // 打开后转为半开前的等待
	HalfOpenRequests uint32        `mapstructure:"half_open_requests" rule:"min=1"`       // 半开时放行的试探请求数
}

// BreakerName 未配置名称时使用 DefaultCBName.
func (c CircuitBreakerConfig) BreakerName() string {
	if c.Name == "" {
		return DefaultCBName
	}

	return c.Name
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", DefaultCBEnabled)
	v.SetDefault("circuit_breaker.name", DefaultCBName)
	v.SetDefault("circuit_breaker.failure_rate", DefaultCBFailureRate)
	v.SetDefault("circuit_breaker.min_requests", DefaultCBMinRequests)
	v.SetDefault("circuit_breaker.interval", DefaultCBInterval)
	v.SetDefault("circuit_breaker.open_timeout", DefaultCBOpenTimeout)
	v.SetDefault("circuit_breaker.half_open_requests", DefaultCBHalfOpenRequests)
}
