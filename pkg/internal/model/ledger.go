package model

import "time"

// StorageLedger 存储账本快照，整个系统只有一行.
// Version 每次写入加一，增量更新以 WHERE version = ? 实现比较并交换.
type StorageLedger struct {
	ID               string    `gorm:"primaryKey;size:64"`
	TotalBytes       int64     `gorm:"not null;default:0"`
	TotalFiles       int64     `gorm:"not null;default:0"`
	UploadOpsToday   int64     `gorm:"not null;default:0"`
	UploadOpsResetAt time.Time `gorm:"not null"`
	LastUpdatedAt    time.Time `gorm:"not null"`
	LastReconciledAt *time.Time
	Version          int64 `gorm:"not null;default:0"`
}

// TableName 固定表名.
func (StorageLedger) TableName() string {
	return "storage_ledger"
}
