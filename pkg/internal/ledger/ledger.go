package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/studiovault/pkg/internal/storage/object"
	nlog "github.com/yeisme/studiovault/pkg/log"
	"github.com/yeisme/studiovault/pkg/tracing"
)

const (
	defaultPageSize         = 1000
	defaultReconcileTimeout = 30 * time.Minute
)

// 写入操作名称，用于日志、指标与 Observer.
const (
	OpUpload    = "upload"
	OpDeletion  = "deletion"
	OpReconcile = "reconcile"
)

// Ledger 全局存储用量账本.
type Ledger struct {
	store    Store
	lister   object.Lister
	limits   Limits
	pageSize int
	timeout  time.Duration
	now      func() time.Time
	observer Observer
	logger   *zerolog.Logger
	group    singleflight.Group
}

// Option 配置 Ledger.
type Option func(*Ledger)

// WithClock 替换时钟，测试日切时使用.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithPageSize 设置对账分页大小.
func WithPageSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// WithReconcileTimeout 设置单次对账扫描的超时.
func WithReconcileTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithObserver 追加 Observer.
func WithObserver(ob Observer) Option {
	return func(l *Ledger) {
		if ob == nil {
			return
		}

		if l.observer == nil {
			l.observer = ob

			return
		}

		l.observer = Observers{l.observer, ob}
	}
}

// WithLogger 指定 logger，默认使用全局 logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New 创建账本；lister 用于对账时分页扫描整个对象存储.
func New(store Store, lister object.Lister, limits Limits, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		lister:   lister,
		limits:   limits,
		pageSize: defaultPageSize,
		timeout:  defaultReconcileTimeout,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.logger == nil {
		l.logger = nlog.Logger()
	}

	if l.observer == nil {
		l.observer = Observers{}
	}

	return l
}

// Limits 返回配额上限.
func (l *Ledger) Limits() Limits {
	return l.limits
}

// GetSnapshot 返回当前快照；快照不存在时同步对账并返回新建的快照.
// 普通读取不做日切归一化.
func (l *Ledger) GetSnapshot(ctx context.Context) (Snapshot, error) {
	snap, err := l.store.Load(ctx)
	if errors.Is(err, ErrSnapshotNotFound) {
		l.logger.Info().Msg("ledger snapshot missing, seeding by reconcile")

		return l.Reconcile(ctx)
	}

	if err != nil {
		return Snapshot{}, fmt.Errorf("load ledger snapshot: %w", err)
	}

	return snap, nil
}

// Status 返回快照与上限.
func (l *Ledger) Status(ctx context.Context) (Status, error) {
	snap, err := l.GetSnapshot(ctx)
	if err != nil {
		return Status{}, err
	}

	return Status{Snapshot: snap, Limits: l.limits}, nil
}

// EnsureCapacity 预检：追加 requiredBytes 字节与 requiredUploadOps 次上传是否越界.
// 只读不写，且与随后的对象写入不是原子的，权威校验在 RecordSuccessfulUpload 中.
func (l *Ledger) EnsureCapacity(ctx context.Context, requiredBytes, requiredUploadOps int64) (err error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.EnsureCapacity",
		trace.WithAttributes(
			attribute.Int64("ledger.required_bytes", requiredBytes),
			attribute.Int64("ledger.required_ops", requiredUploadOps),
		))
	defer func() { endSpan(span, err) }()

	if requiredBytes < 0 || requiredUploadOps < 0 {
		return ErrInvalidAmount
	}

	snap, err := l.GetSnapshot(ctx)
	if err != nil {
		return err
	}

	ops := NormalizeDailyOps(snap, l.now())
	if err := l.limits.check(snap, ops, requiredBytes, requiredUploadOps); err != nil {
		l.limitExceeded("guard", err)

		return err
	}

	return nil
}

// RecordSuccessfulUpload 在对象已落盘后计入一次上传.
// 事务内重新做日切归一化并复检两个上限；越界时返回与预检相同的错误，调用方必须删除刚写入的对象.
func (l *Ledger) RecordSuccessfulUpload(ctx context.Context, bytes int64) (snap Snapshot, err error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.RecordSuccessfulUpload",
		trace.WithAttributes(attribute.Int64("ledger.bytes", bytes)))
	defer func() { endSpan(span, err) }()

	if bytes < 0 {
		return Snapshot{}, ErrInvalidAmount
	}

	snap, err = l.store.Update(ctx, l.recordUpload(bytes, 1))
	if errors.Is(err, ErrSnapshotNotFound) {
		// 对账扫描发生在对象写入之后，已包含本次对象，只需计入上传次数并复检上限
		if _, err = l.Reconcile(ctx); err != nil {
			return Snapshot{}, fmt.Errorf("seed ledger snapshot: %w", err)
		}

		snap, err = l.store.Update(ctx, l.recordUpload(0, 0))
	}

	if err != nil {
		if IsLimitError(err) {
			l.limitExceeded("record", err)

			return Snapshot{}, err
		}

		return Snapshot{}, fmt.Errorf("record upload: %w", err)
	}

	l.logger.Debug().
		Int64("bytes", bytes).
		Int64("total_bytes", snap.TotalBytes).
		Int64("total_files", snap.TotalFiles).
		Int64("upload_ops_today", snap.UploadOpsToday).
		Msg("ledger upload recorded")
	l.observer.SnapshotChanged(OpUpload, snap, l.limits)

	return snap, nil
}

func (l *Ledger) recordUpload(bytes, files int64) UpdateFunc {
	return func(cur Snapshot) (Snapshot, error) {
		now := l.now().UTC()
		ops := NormalizeDailyOps(cur, now)

		if err := l.limits.check(cur, ops, bytes, 1); err != nil {
			return Snapshot{}, err
		}

		return applyUpload(cur, ops, bytes, files, now), nil
	}
}

// RecordDeletion 在对象确认删除后扣减用量，结果不低于 0；从不因配额失败.
func (l *Ledger) RecordDeletion(ctx context.Context, bytes, filesDeleted int64) (snap Snapshot, err error) {
	ctx, span := tracing.StartSpan(ctx, "ledger.RecordDeletion",
		trace.WithAttributes(
			attribute.Int64("ledger.bytes", bytes),
			attribute.Int64("ledger.files", filesDeleted),
		))
	defer func() { endSpan(span, err) }()

	if bytes < 0 || filesDeleted < 0 {
		return Snapshot{}, ErrInvalidAmount
	}

	snap, err = l.store.Update(ctx, func(cur Snapshot) (Snapshot, error) {
		return applyDeletion(cur, bytes, filesDeleted, l.now().UTC()), nil
	})
	if errors.Is(err, ErrSnapshotNotFound) {
		// 对账发生在删除之后，结果已经不含被删对象
		return l.Reconcile(ctx)
	}

	if err != nil {
		return Snapshot{}, fmt.Errorf("record deletion: %w", err)
	}

	l.logger.Debug().
		Int64("bytes", bytes).
		Int64("files", filesDeleted).
		Int64("total_bytes", snap.TotalBytes).
		Int64("total_files", snap.TotalFiles).
		Msg("ledger deletion recorded")
	l.observer.SnapshotChanged(OpDeletion, snap, l.limits)

	return snap, nil
}

func (l *Ledger) limitExceeded(stage string, err error) {
	var le *LimitError
	if !errors.As(err, &le) {
		return
	}

	l.logger.Info().
		Str("stage", stage).
		Str("kind", LimitKind(err)).
		Int64("current", le.Current).
		Int64("requested", le.Requested).
		Int64("limit", le.Limit).
		Msg("ledger quota rejected")
	l.observer.LimitExceeded(stage, le)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}
