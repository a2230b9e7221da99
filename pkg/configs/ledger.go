package configs

import (
	"fmt"
	"math"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/viper"
)

// LedgerStoreType 账本快照的持久化后端.
type LedgerStoreType string

const (
	LedgerStoreDB     LedgerStoreType = "db"     // 关系型数据库（带 version 列的单行记录）
	LedgerStoreRedis  LedgerStoreType = "redis"  // Redis WATCH/MULTI
	LedgerStoreNATS   LedgerStoreType = "nats"   // NATS JetStream KV 修订号
	LedgerStoreMemory LedgerStoreType = "memory" // 进程内，仅限单实例与测试
)

const (
	DefaultLedgerStorageLimit      = "5GB" // 5 GiB
	DefaultLedgerUploadOpsDaily    = 20000
	DefaultLedgerReconcilePageSize = 1000
	DefaultLedgerMaxRetries        = 10
	DefaultLedgerDriftAlert        = "1MB"
	DefaultLedgerRecordID          = "global"
	DefaultLedgerReconcileTimeout  = 30 * time.Minute
)

// LedgerConfig 存储账本配置：配额上限、快照后端、对账策略.
type LedgerConfig struct {
	Store LedgerStoreType `mapstructure:"store" rule:"oneof=db redis nats memory"`
	// RecordID 快照记录的主键 / 键名
	RecordID string `mapstructure:"record_id" rule:"required"`
	// StorageLimit 总容量上限，如 "5GB"、"500MB" 或纯字节数，"0" 表示不限制
	StorageLimit string `mapstructure:"storage_limit" rule:"required"`
	// UploadOpsDailyLimit 每个 UTC 日的上传次数上限，0 表示不限制
	UploadOpsDailyLimit int64 `mapstructure:"upload_ops_daily_limit" rule:"min=0"`
	// MaxRetries CAS 冲突时的最大尝试次数
	MaxRetries uint `mapstructure:"max_retries" rule:"min=1,max=100"`
	// ReconcilePageSize 对账时每页列举的对象数
	ReconcilePageSize int `mapstructure:"reconcile_page_size" rule:"min=1,max=10000"`
	// ReconcileTimeout 单次对账扫描的最长时间；扫描与发起请求的调用方解耦
	ReconcileTimeout time.Duration `mapstructure:"reconcile_timeout" rule:"min=0"`
	// ReconcileCron 定时对账的 cron 表达式，为空则只按需对账
	ReconcileCron string `mapstructure:"reconcile_cron"`
	// DriftAlert 对账发现的字节偏差达到该值时发布告警事件，格式同 StorageLimit
	DriftAlert string `mapstructure:"drift_alert"`
	// StatusCacheTTL 状态接口的响应缓存时间，0 表示不缓存
	StatusCacheTTL time.Duration `mapstructure:"status_cache_ttl"`

	Redis LedgerRedisConfig `mapstructure:"redis"`
	NATS  LedgerNATSConfig  `mapstructure:"nats"`
}

// LedgerRedisConfig Redis 后端连接.
type LedgerRedisConfig struct {
	Addr     string `mapstructure:"addr"     rule:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
	Key      string `mapstructure:"key"`
}

// LedgerNATSConfig NATS JetStream KV 后端连接.
type LedgerNATSConfig struct {
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Bucket   string `mapstructure:"bucket"`
}

// StorageLimitBytes 解析容量上限.
func (c *LedgerConfig) StorageLimitBytes() (int64, error) {
	return ParseByteSize(c.StorageLimit)
}

// DriftAlertBytes 解析偏差告警阈值，未配置时为 0.
func (c *LedgerConfig) DriftAlertBytes() (int64, error) {
	if c.DriftAlert == "" {
		return 0, nil
	}

	return ParseByteSize(c.DriftAlert)
}

// ParseByteSize 解析 "5GB"、"512MB"、"1024" 这类容量写法（1KB = 1024B）.
func ParseByteSize(s string) (int64, error) {
	size, err := datasize.ParseString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	if size.Bytes() > math.MaxInt64 {
		return 0, fmt.Errorf("byte size %q overflows int64", s)
	}

	return int64(size.Bytes()), nil
}

// HumanBytes 以可读单位格式化字节数.
func HumanBytes(n int64) string {
	if n < 0 {
		return "-" + datasize.ByteSize(-n).HumanReadable()
	}

	return datasize.ByteSize(n).HumanReadable()
}

// setDefaults 设置账本配置的默认值.
func (c *LedgerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("ledger.store", LedgerStoreDB)
	v.SetDefault("ledger.record_id", DefaultLedgerRecordID)
	v.SetDefault("ledger.storage_limit", DefaultLedgerStorageLimit)
	v.SetDefault("ledger.upload_ops_daily_limit", DefaultLedgerUploadOpsDaily)
	v.SetDefault("ledger.max_retries", DefaultLedgerMaxRetries)
	v.SetDefault("ledger.reconcile_page_size", DefaultLedgerReconcilePageSize)
	v.SetDefault("ledger.reconcile_timeout", DefaultLedgerReconcileTimeout)
	v.SetDefault("ledger.reconcile_cron", "")
	v.SetDefault("ledger.drift_alert", DefaultLedgerDriftAlert)
	v.SetDefault("ledger.status_cache_ttl", "0s")

	v.SetDefault("ledger.redis.addr", "localhost:6379")
	v.SetDefault("ledger.redis.password", "")
	v.SetDefault("ledger.redis.db", 0)
	v.SetDefault("ledger.redis.key", "studiovault:ledger")

	v.SetDefault("ledger.nats.url", "nats://localhost:4222")
	v.SetDefault("ledger.nats.bucket", "studiovault-ledger")
}
