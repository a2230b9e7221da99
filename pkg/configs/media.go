package configs

import (
	"time"

	"github.com/spf13/viper"
)

// MediaConfig 媒体上传相关配置.
type MediaConfig struct {
	// MaxUpload 单个文件的上限，如 "50MB"
	MaxUpload string `mapstructure:"max_upload" rule:"required"`
	// ReadURLExpiry 预签名读取链接的默认有效期
	ReadURLExpiry time.Duration `mapstructure:"read_url_expiry"`
	// KeyPrefix 所有对象键的公共前缀，为空时直接使用 kind/ 开头
	KeyPrefix string `mapstructure:"key_prefix"`
}

// MaxUploadBytes 解析单文件上限.
func (c *MediaConfig) MaxUploadBytes() (int64, error) {
	return ParseByteSize(c.MaxUpload)
}

func (c *MediaConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("media.max_upload", "50MB")
	v.SetDefault("media.read_url_expiry", "1h")
	v.SetDefault("media.key_prefix", "")
}
