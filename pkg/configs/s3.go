package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

// S3Driver 对象存储驱动.
type S3Driver string

const (
	S3DriverMinIO  S3Driver = "minio"  // MinIO / 兼容 S3 的服务
	S3DriverMemory S3Driver = "memory" // 进程内存储，仅用于本地开发
)

// S3Config MinIO S3存储配置.
type S3Config struct {
	Driver          S3Driver `mapstructure:"driver"            rule:"oneof=minio memory"`
	Endpoint        string   `mapstructure:"endpoint"`
	AccessKeyID     string   `mapstructure:"access_key_id"`
	SecretAccessKey string   `mapstructure:"secret_access_key"`
	UseSSL          bool     `mapstructure:"use_ssl"`
	BucketName      string   `mapstructure:"bucket_name"       rule:"required"`
	Region          string   `mapstructure:"region"`
	// AutoCreateBucket 启动时若存储桶不存在则创建
	AutoCreateBucket bool `mapstructure:"auto_create_bucket"`
}

const (
	DefaultS3Driver          = S3DriverMinIO    // 默认驱动
	DefaultS3Endpoint        = "localhost:9000" // 默认S3端点
	DefaultS3AccessKeyID     = "minioadmin"     // 默认访问密钥ID
	DefaultS3SecretAccessKey = "minioadmin"     // 默认秘密访问密钥
	DefaultS3UseSSL          = false            // 默认是否使用SSL
	DefaultS3BucketName      = "studio-media"   // 默认存储桶名称
	DefaultS3Region          = "us-east-1"      // 默认区域
)

// GetEndpointURL 获取完整的端点URL.
func (c *S3Config) GetEndpointURL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// setDefaults 设置 S3 配置的默认值.
func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.driver", DefaultS3Driver)
	v.SetDefault("s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("s3.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("s3.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("s3.use_ssl", DefaultS3UseSSL)
	v.SetDefault("s3.bucket_name", DefaultS3BucketName)
	v.SetDefault("s3.region", DefaultS3Region)
	v.SetDefault("s3.auto_create_bucket", true)
}
