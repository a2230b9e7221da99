// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/log"
	"github.com/yeisme/studiovault/pkg/scheduler"
)

// reconcileTimeout 单次定时对账的最长耗时.
const reconcileTimeout = 30 * time.Minute

// Reconciler 定时对账依赖的账本操作.
type Reconciler interface {
	Reconcile(ctx context.Context) (ledger.Snapshot, error)
}

// RegisterCronJobs 按配置注册业务定时任务：
//   - ledger.reconcile_cron 非空时按该表达式定时全量对账
//
// 日切始终是惰性的，不需要定时任务.
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, led Reconciler, cfg configs.LedgerConfig) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if cfg.ReconcileCron == "" {
		log.Logger().Info().Msg("ledger.reconcile_cron is empty, scheduled reconcile disabled")

		return nil
	}

	if led == nil {
		return errors.New("ledger is nil")
	}

	return sched.AddCron(ctx, JobLedgerReconcile, cfg.ReconcileCron, func(ctx context.Context) error {
		return runLedgerReconcile(ctx, led)
	})
}

// runLedgerReconcile 全量扫描对象存储并重建账本快照.
func runLedgerReconcile(ctx context.Context, led Reconciler) error {
	l := log.Logger().With().Str("job", JobLedgerReconcile).Logger()

	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	start := time.Now()

	snap, err := led.Reconcile(ctx)
	if err != nil {
		l.Error().Err(err).Msg("scheduled reconcile failed, previous snapshot kept")

		return err
	}

	l.Info().
		Int64("total_bytes", snap.TotalBytes).
		Int64("total_files", snap.TotalFiles).
		Dur("took", time.Since(start)).
		Msg("scheduled reconcile finished")

	return nil
}
