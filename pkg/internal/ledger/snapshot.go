// Package ledger 维护对象存储的全局用量账本：总字节数、文件数与当日上传次数.
//
// 账本只有一条快照记录，所有增量修改都经过 Store.Update 的比较并交换（CAS）事务完成；
// 对账（Reconcile）通过分页扫描对象存储整体重建快照.
//
// 上传流水线的调用顺序：
//
//	led.EnsureCapacity(ctx, size, 1)          // 预检，失败即返回，不做任何写入
//	ref, err := store.PutObject(...)          // 写入对象
//	_, err = led.RecordSuccessfulUpload(ctx, ref.SizeBytes)
//	if err != nil {
//		store.RemoveObject(ctx, ref.Path)     // 事务内复检失败，删除孤儿对象
//	}
package ledger

import "time"

// Snapshot 账本快照.
type Snapshot struct {
	TotalBytes       int64      `json:"totalBytes"`
	TotalFiles       int64      `json:"totalFiles"`
	UploadOpsToday   int64      `json:"uploadOpsToday"`
	UploadOpsResetAt time.Time  `json:"uploadOpsResetAt"`
	LastUpdatedAt    time.Time  `json:"lastUpdatedAt"`
	LastReconciledAt *time.Time `json:"lastReconciledAt,omitempty"`
}

// Limits 配额上限，0 表示不限制.
type Limits struct {
	StorageBytes   int64 `json:"storageBytes"`
	UploadOpsDaily int64 `json:"uploadOpsDaily"`
}

// Status 运维状态接口的返回体.
type Status struct {
	Snapshot Snapshot `json:"snapshot"`
	Limits   Limits   `json:"limits"`
}

// DailyOps 经过日切归一化后的当日上传计数.
type DailyOps struct {
	Count      int64
	ResetAt    time.Time
	RolledOver bool
}

// NormalizeDailyOps 判断 UploadOpsResetAt 与 now 是否处于同一 UTC 日；
// 不同日时当日计数视为 0，重置时间取 now.
func NormalizeDailyOps(s Snapshot, now time.Time) DailyOps {
	now = now.UTC()
	if sameUTCDay(s.UploadOpsResetAt, now) {
		return DailyOps{Count: s.UploadOpsToday, ResetAt: s.UploadOpsResetAt}
	}

	return DailyOps{Count: 0, ResetAt: now, RolledOver: true}
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()

	return ay == by && am == bm && ad == bd
}

// check 校验追加 bytes 字节与 ops 次上传后是否越界；字节上限优先.
func (l Limits) check(s Snapshot, ops DailyOps, bytes, uploadOps int64) error {
	if l.StorageBytes > 0 && s.TotalBytes+bytes > l.StorageBytes {
		return &LimitError{
			Kind:      ErrStorageLimitExceeded,
			Current:   s.TotalBytes,
			Requested: bytes,
			Limit:     l.StorageBytes,
		}
	}

	if l.UploadOpsDaily > 0 && ops.Count+uploadOps > l.UploadOpsDaily {
		return &LimitError{
			Kind:      ErrUploadOpsLimitExceeded,
			Current:   ops.Count,
			Requested: uploadOps,
			Limit:     l.UploadOpsDaily,
		}
	}

	return nil
}

// applyUpload 在已通过校验的快照上计入一次上传.
func applyUpload(s Snapshot, ops DailyOps, bytes, files int64, now time.Time) Snapshot {
	next := s
	next.TotalBytes += bytes
	next.TotalFiles += files
	next.UploadOpsToday = ops.Count + 1
	next.UploadOpsResetAt = ops.ResetAt
	next.LastUpdatedAt = now

	return next
}

// applyDeletion 扣减用量，结果不低于 0；不触碰上传计数.
func applyDeletion(s Snapshot, bytes, files int64, now time.Time) Snapshot {
	next := s
	next.TotalBytes = max(0, s.TotalBytes-bytes)
	next.TotalFiles = max(0, s.TotalFiles-files)
	next.LastUpdatedAt = now

	return next
}
