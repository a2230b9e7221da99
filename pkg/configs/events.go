package configs

import "github.com/spf13/viper"

// DefaultEventsBuffer 待发布事件队列的默认容量.
const DefaultEventsBuffer = 256

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool               `mapstructure:"enabled"`                       // 总开关
	Buffer  int                `mapstructure:"buffer" rule:"min=0,max=65536"` // 待发布队列容量，满时丢弃
	Media   MediaEventsConfig  `mapstructure:"media"`
	Ledger  LedgerEventsConfig `mapstructure:"ledger"`
}

// MediaEventsConfig 媒体对象的事件开关。
type MediaEventsConfig struct {
	Stored  bool `mapstructure:"stored"`
	Deleted bool `mapstructure:"deleted"`
}

// LedgerEventsConfig 存储账本的事件开关。
type LedgerEventsConfig struct {
	LimitExceeded bool `mapstructure:"limit_exceeded"`
	Reconciled    bool `mapstructure:"reconciled"`
	Drift         bool `mapstructure:"drift"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.buffer", DefaultEventsBuffer)

	v.SetDefault("events.media.stored", true)
	v.SetDefault("events.media.deleted", true)

	// 配额拒绝在高峰期可能很多，默认开启以便告警系统订阅
	v.SetDefault("events.ledger.limit_exceeded", true)
	v.SetDefault("events.ledger.reconciled", false)
	v.SetDefault("events.ledger.drift", true)
}
