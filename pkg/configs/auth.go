package configs

import "github.com/spf13/viper"

// AuthConfig 控制后台接口的身份认证（优先支持 oauth2-proxy 注入的请求头，也支持静态 Bearer Token）。
type AuthConfig struct {
	Enabled       bool              `mapstructure:"enabled"`         // 开启认证校验
	SkipPaths     []string          `mapstructure:"skip_paths"`      // 跳过认证的路径前缀（如 /metrics、/api/v1/health）
	DevAllowQuery bool              `mapstructure:"dev_allow_query"` // 开发模式允许用 ?user= 便于本地调试
	Tokens        map[string]string `mapstructure:"tokens"`          // token -> 角色（viewer/editor/admin）
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.dev_allow_query", false)
	v.SetDefault("auth.tokens", map[string]string{})
	v.SetDefault("auth.skip_paths", []string{
		"/metrics",
		"/api/v1/health",
	})
}
