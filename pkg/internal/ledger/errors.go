package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageLimitExceeded 总字节数将超过上限.
	ErrStorageLimitExceeded = errors.New("storage limit reached, delete files first")
	// ErrUploadOpsLimitExceeded 当日上传次数将超过上限.
	ErrUploadOpsLimitExceeded = errors.New("daily upload limit reached, try again tomorrow")
	// ErrSnapshotNotFound 快照尚未创建.
	ErrSnapshotNotFound = errors.New("ledger snapshot not found")
	// ErrConflict CAS 写入时快照已被其他写者修改.
	ErrConflict = errors.New("ledger snapshot modified concurrently")
	// ErrInvalidAmount 字节数或次数为负.
	ErrInvalidAmount = errors.New("ledger amount must not be negative")
)

// LimitError 配额错误，errors.Is 可匹配 ErrStorageLimitExceeded / ErrUploadOpsLimitExceeded.
type LimitError struct {
	Kind      error
	Current   int64
	Requested int64
	Limit     int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s (current %d + requested %d > limit %d)", e.Kind, e.Current, e.Requested, e.Limit)
}

func (e *LimitError) Unwrap() error {
	return e.Kind
}

// IsLimitError 判断是否为配额错误.
func IsLimitError(err error) bool {
	return errors.Is(err, ErrStorageLimitExceeded) || errors.Is(err, ErrUploadOpsLimitExceeded)
}

// LimitKind 返回配额错误的类别标签，用于指标与事件.
func LimitKind(err error) string {
	switch {
	case errors.Is(err, ErrStorageLimitExceeded):
		return "storage_bytes"
	case errors.Is(err, ErrUploadOpsLimitExceeded):
		return "upload_ops_daily"
	default:
		return ""
	}
}
