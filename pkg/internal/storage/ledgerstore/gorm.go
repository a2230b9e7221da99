package ledgerstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/internal/model"
)

// GormStore 把快照存为 storage_ledger 表中的一行，用 version 列做乐观并发控制.
type GormStore struct {
	db       *gorm.DB
	id       string
	maxTries uint
}

// NewGormStore 创建数据库快照存储，需事先迁移 model.StorageLedger.
func NewGormStore(db *gorm.DB, id string, maxTries uint) *GormStore {
	return &GormStore{db: db, id: id, maxTries: maxTries}
}

func init() {
	RegisterFactory(configs.LedgerStoreDB, func(_ context.Context, cfg *configs.LedgerConfig, deps Deps) (ledger.Store, error) {
		if deps.DB == nil {
			return nil, errors.New("ledger store db requires a database connection")
		}

		return NewGormStore(deps.DB, cfg.RecordID, cfg.MaxRetries), nil
	})
}

func (s *GormStore) load(ctx context.Context) (model.StorageLedger, error) {
	var row model.StorageLedger

	err := s.db.WithContext(ctx).Where("id = ?", s.id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, ledger.ErrSnapshotNotFound
	}

	if err != nil {
		return row, fmt.Errorf("query storage_ledger: %w", err)
	}

	return row, nil
}

func (s *GormStore) Load(ctx context.Context) (ledger.Snapshot, error) {
	row, err := s.load(ctx)
	if err != nil {
		return ledger.Snapshot{}, err
	}

	return rowToSnapshot(row), nil
}

// Update 读取当前行与版本号，计算新快照后以 WHERE version = ? 条件写回；影响 0 行即冲突重试.
func (s *GormStore) Update(ctx context.Context, fn ledger.UpdateFunc) (ledger.Snapshot, error) {
	return retryOnConflict(ctx, s.maxTries, func() (ledger.Snapshot, error) {
		row, err := s.load(ctx)
		if err != nil {
			return ledger.Snapshot{}, err
		}

		next, err := fn(rowToSnapshot(row))
		if err != nil {
			return ledger.Snapshot{}, err
		}

		res := s.db.WithContext(ctx).
			Model(&model.StorageLedger{}).
			Where("id = ? AND version = ?", s.id, row.Version).
			Updates(snapshotColumns(next, row.Version+1))
		if res.Error != nil {
			return ledger.Snapshot{}, fmt.Errorf("update storage_ledger: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			return ledger.Snapshot{}, ledger.ErrConflict
		}

		return next, nil
	})
}

// Replace 插入或覆盖快照，同时递增 version，使并发中的 Update 发生冲突并重读.
func (s *GormStore) Replace(ctx context.Context, snap ledger.Snapshot) error {
	row := snapshotToRow(s.id, snap)
	row.Version = 1

	assignments := snapshotColumns(snap, 0)
	assignments["version"] = gorm.Expr("version + 1")

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("replace storage_ledger: %w", err)
	}

	return nil
}

func snapshotColumns(s ledger.Snapshot, version int64) map[string]any {
	cols := map[string]any{
		"total_bytes":         s.TotalBytes,
		"total_files":         s.TotalFiles,
		"upload_ops_today":    s.UploadOpsToday,
		"upload_ops_reset_at": s.UploadOpsResetAt.UTC(),
		"last_updated_at":     s.LastUpdatedAt.UTC(),
		"last_reconciled_at":  utcPtr(s.LastReconciledAt),
	}
	if version > 0 {
		cols["version"] = version
	}

	return cols
}

func snapshotToRow(id string, s ledger.Snapshot) model.StorageLedger {
	return model.StorageLedger{
		ID:               id,
		TotalBytes:       s.TotalBytes,
		TotalFiles:       s.TotalFiles,
		UploadOpsToday:   s.UploadOpsToday,
		UploadOpsResetAt: s.UploadOpsResetAt.UTC(),
		LastUpdatedAt:    s.LastUpdatedAt.UTC(),
		LastReconciledAt: utcPtr(s.LastReconciledAt),
	}
}

func rowToSnapshot(r model.StorageLedger) ledger.Snapshot {
	return ledger.Snapshot{
		TotalBytes:       r.TotalBytes,
		TotalFiles:       r.TotalFiles,
		UploadOpsToday:   r.UploadOpsToday,
		UploadOpsResetAt: r.UploadOpsResetAt.UTC(),
		LastUpdatedAt:    r.LastUpdatedAt.UTC(),
		LastReconciledAt: utcPtr(r.LastReconciledAt),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	u := t.UTC()

	return &u
}
