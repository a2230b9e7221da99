package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/studiovault/pkg/tracing"
)

// ErrReconcileStalled 列举返回的页令牌没有前进.
var ErrReconcileStalled = errors.New("ledger reconcile: page token did not advance")

// Reconcile 分页扫描整个对象存储并整体替换快照：总量取扫描结果，当日上传计数清零，
// 三个时间戳都取当前时间. 扫描中途失败时旧快照保持不变.
//
// 同一进程内并发的对账请求合并为一次扫描. 扫描使用脱离调用方取消的 ctx，
// 只受 WithReconcileTimeout 限制；调用方 ctx 结束时立即返回，扫描继续为其他等待者完成.
func (l *Ledger) Reconcile(ctx context.Context) (Snapshot, error) {
	ch := l.group.DoChan(OpReconcile, func() (any, error) {
		sweepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		return l.reconcile(sweepCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}

		return res.Val.(Snapshot), nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (l *Ledger) reconcile(ctx context.Context) (snap Snapshot, err error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.Reconcile")
	defer func() { endSpan(span, err) }()

	start := time.Now()

	var prev *Snapshot

	switch cur, err := l.store.Load(ctx); {
	case err == nil:
		prev = &cur
	case errors.Is(err, ErrSnapshotNotFound):
	default:
		return Snapshot{}, fmt.Errorf("load ledger snapshot: %w", err)
	}

	files, bytes, pages, err := l.sweep(ctx)
	if err != nil {
		l.logger.Error().Err(err).Int("pages", pages).Msg("ledger reconcile aborted, snapshot left unchanged")

		return Snapshot{}, err
	}

	now := l.now().UTC()
	reconciledAt := now
	snap = Snapshot{
		TotalBytes:       bytes,
		TotalFiles:       files,
		UploadOpsToday:   0,
		UploadOpsResetAt: now,
		LastUpdatedAt:    now,
		LastReconciledAt: &reconciledAt,
	}

	if err := l.store.Replace(ctx, snap); err != nil {
		return Snapshot{}, fmt.Errorf("replace ledger snapshot: %w", err)
	}

	var drift Drift
	if prev != nil {
		drift = Drift{Bytes: snap.TotalBytes - prev.TotalBytes, Files: snap.TotalFiles - prev.TotalFiles}
	}

	span.SetAttributes(
		attribute.Int64("ledger.total_bytes", bytes),
		attribute.Int64("ledger.total_files", files),
		attribute.Int("ledger.pages", pages),
	)

	evt := l.logger.Info()
	if !drift.IsZero() {
		evt = l.logger.Warn()
	}

	evt.Int64("total_bytes", bytes).
		Int64("total_files", files).
		Int("pages", pages).
		Int64("drift_bytes", drift.Bytes).
		Int64("drift_files", drift.Files).
		Bool("seeded", prev == nil).
		Dur("took", time.Since(start)).
		Msg("ledger reconciled")

	l.observer.SnapshotChanged(OpReconcile, snap, l.limits)
	l.observer.Reconciled(prev, snap, drift)

	return snap, nil
}

// sweep 逐页累加对象数与字节数，不在内存中保留对象列表.
func (l *Ledger) sweep(ctx context.Context) (files, bytes int64, pages int, err error) {
	token := ""

	for {
		if err := ctx.Err(); err != nil {
			return 0, 0, pages, err
		}

		_, pageSpan := tracing.StartSpan(ctx, "ledger.Reconcile.page",
			trace.WithAttributes(attribute.Int("ledger.page", pages+1)))
		page, err := l.lister.ListObjects(ctx, "", token, l.pageSize)
		endSpan(pageSpan, err)

		if err != nil {
			return 0, 0, pages, fmt.Errorf("list objects page %d: %w", pages+1, err)
		}

		pages++

		for _, it := range page.Items {
			files++
			bytes += it.SizeBytes
		}

		if page.NextPageToken == "" {
			return files, bytes, pages, nil
		}

		if page.NextPageToken == token {
			return 0, 0, pages, ErrReconcileStalled
		}

		token = page.NextPageToken
	}
}
