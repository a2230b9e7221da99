package app

import (
	"fmt"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/internal/storage"
	"github.com/yeisme/studiovault/pkg/log"
	"github.com/yeisme/studiovault/pkg/metrics"
	"github.com/yeisme/studiovault/pkg/queue"
)

// BuildLedger 由配置与已初始化的存储组装账本与事件通知器.
// 对账扫描整个对象存储，快照写入 mgr.Ledger.
func BuildLedger(cfg *configs.AppConfig, mgr *storage.Manager) (*ledger.Ledger, *queue.Notifier, error) {
	if mgr == nil || mgr.Objects == nil || mgr.Ledger == nil {
		return nil, nil, fmt.Errorf("storage manager is not initialized")
	}

	storageLimit, err := cfg.Ledger.StorageLimitBytes()
	if err != nil {
		return nil, nil, fmt.Errorf("ledger.storage_limit: %w", err)
	}

	driftAlert, err := cfg.Ledger.DriftAlertBytes()
	if err != nil {
		return nil, nil, fmt.Errorf("ledger.drift_alert: %w", err)
	}

	notifier := queue.NewNotifier(mgr.GetMQClient().Publisher(), cfg.Events, driftAlert, log.Component("events"))

	limits := ledger.Limits{
		StorageBytes:   storageLimit,
		UploadOpsDaily: cfg.Ledger.UploadOpsDailyLimit,
	}

	led := ledger.New(mgr.Ledger, mgr.Objects, limits,
		ledger.WithPageSize(cfg.Ledger.ReconcilePageSize),
		ledger.WithReconcileTimeout(cfg.Ledger.ReconcileTimeout),
		ledger.WithLogger(log.Component("ledger")),
		ledger.WithObserver(metrics.LedgerObserver{}),
		ledger.WithObserver(notifier),
	)

	log.Logger().Info().
		Str("store", string(cfg.Ledger.Store)).
		Str("storage_limit", configs.HumanBytes(storageLimit)).
		Int64("upload_ops_daily", limits.UploadOpsDaily).
		Msg("ledger ready")

	return led, notifier, nil
}
