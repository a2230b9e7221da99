package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 媒体领域 --------------------------

// ObjectRef 标识对象存储中的一个对象.
type ObjectRef struct {
	Bucket      string `json:"bucket,omitempty"`
	ObjectKey   string `json:"object_key"`
	ETag        string `json:"etag,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// MediaStoredPayload 媒体对象已写入并计入账本.
type MediaStoredPayload struct {
	Object   ObjectRef `json:"object"`
	AssetID  string    `json:"asset_id,omitempty"`
	Kind     string    `json:"kind"`
	Folder   string    `json:"folder,omitempty"`
	FileName string    `json:"file_name,omitempty"`
}

// MediaDeletedPayload 媒体对象已删除.
type MediaDeletedPayload struct {
	Object ObjectRef `json:"object"`
	// LedgerUpdated 为 false 表示账本扣减失败，等待下一次对账修正
	LedgerUpdated bool `json:"ledger_updated"`
}

// -------------------------- 账本领域 --------------------------

// LedgerTotals 快照中的用量部分.
type LedgerTotals struct {
	TotalBytes     int64 `json:"total_bytes"`
	TotalFiles     int64 `json:"total_files"`
	UploadOpsToday int64 `json:"upload_ops_today"`
}

// LimitExceededPayload 配额拒绝.
type LimitExceededPayload struct {
	// Kind storage_bytes 或 upload_ops_daily
	Kind string `json:"kind"`
	// Stage guard（预检）或 record（记账复检）
	Stage     string `json:"stage"`
	Current   int64  `json:"current"`
	Requested int64  `json:"requested"`
	Limit     int64  `json:"limit"`
}

// LedgerReconciledPayload 对账结果.
type LedgerReconciledPayload struct {
	Totals LedgerTotals `json:"totals"`
	// Seeded 为 true 表示快照此前不存在，本次对账为首次播种
	Seeded       bool      `json:"seeded"`
	DriftBytes   int64     `json:"drift_bytes"`
	DriftFiles   int64     `json:"drift_files"`
	ReconciledAt time.Time `json:"reconciled_at"`
}

// DriftDetectedPayload 对账偏差告警.
type DriftDetectedPayload struct {
	Previous       LedgerTotals `json:"previous"`
	Scanned        LedgerTotals `json:"scanned"`
	DriftBytes     int64        `json:"drift_bytes"`
	DriftFiles     int64        `json:"drift_files"`
	ThresholdBytes int64        `json:"threshold_bytes"`
}
