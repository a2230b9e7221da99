package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/tracing"
)

// Producer 事件头中的生产者名称.
const Producer = "studiovault"

// Notifier 按 events 配置发布媒体与账本事件；同时实现 ledger.Observer.
// 事件进入有界队列，由后台 goroutine 发布，调用方不等待网络往返；队列满时丢弃并计数.
// 发布失败只记录日志.
type Notifier struct {
	pub        message.Publisher
	cfg        configs.EventsConfig
	driftAlert int64
	logger     *zerolog.Logger

	jobs      chan publishJob
	done      chan struct{}
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	dropped   atomic.Uint64
}

type publishJob struct {
	topic   string
	publish func() error
}

// NewNotifier 创建通知器；启用时启动发布 goroutine，需调用 Close 排空队列.
func NewNotifier(pub message.Publisher, cfg configs.EventsConfig, driftAlert int64, logger *zerolog.Logger) *Notifier {
	n := &Notifier{pub: pub, cfg: cfg, driftAlert: driftAlert, logger: logger}

	if n.enabled() {
		size := cfg.Buffer
		if size <= 0 {
			size = configs.DefaultEventsBuffer
		}

		n.jobs = make(chan publishJob, size)
		n.done = make(chan struct{})

		go n.run()
	}

	return n
}

func (n *Notifier) enabled() bool {
	return n != nil && n.pub != nil && n.cfg.Enabled
}

func (n *Notifier) run() {
	defer close(n.done)

	for job := range n.jobs {
		n.logFailure(job.topic, job.publish())
	}
}

// enqueue 非阻塞入队；Close 之后的事件直接忽略.
func (n *Notifier) enqueue(topic string, publish func() error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed || n.jobs == nil {
		return
	}

	select {
	case n.jobs <- publishJob{topic: topic, publish: publish}:
	default:
		n.dropped.Add(1)
		n.logger.Warn().Str("topic", topic).Msg("event queue full, dropping event")
	}
}

// Close 停止接收新事件并等待队列中的事件发布完毕，可重复调用.
func (n *Notifier) Close() error {
	if n == nil || n.jobs == nil {
		return nil
	}

	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.jobs)
		n.mu.Unlock()
	})

	<-n.done

	return nil
}

// Dropped 因队列已满被丢弃的事件数.
func (n *Notifier) Dropped() uint64 {
	if n == nil {
		return 0
	}

	return n.dropped.Load()
}

func (n *Notifier) headerOpts(ctx context.Context) []func(*EventHeader) {
	opts := []func(*EventHeader){WithProducer(Producer)}

	if id := tracing.TraceID(ctx); id != "" {
		opts = append(opts, WithTraceID(id))
	}

	return opts
}

func (n *Notifier) logFailure(topic string, err error) {
	if err != nil {
		n.logger.Warn().Err(err).Str("topic", topic).Msg("publish event failed")
	}
}

// MediaStored 发布 sv.media.stored.
func (n *Notifier) MediaStored(ctx context.Context, payload MediaStoredPayload) {
	if !n.enabled() || !n.cfg.Media.Stored {
		return
	}

	opts := n.headerOpts(ctx)
	n.enqueue(TopicMediaStored, func() error { return PublishMediaStored(n.pub, payload, opts...) })
}

// MediaDeleted 发布 sv.media.deleted.
func (n *Notifier) MediaDeleted(ctx context.Context, payload MediaDeletedPayload) {
	if !n.enabled() || !n.cfg.Media.Deleted {
		return
	}

	opts := n.headerOpts(ctx)
	n.enqueue(TopicMediaDeleted, func() error { return PublishMediaDeleted(n.pub, payload, opts...) })
}

// SnapshotChanged 普通写入不发事件.
func (n *Notifier) SnapshotChanged(string, ledger.Snapshot, ledger.Limits) {}

func (n *Notifier) LimitExceeded(stage string, err *ledger.LimitError) {
	if !n.enabled() || !n.cfg.Ledger.LimitExceeded {
		return
	}

	payload := LimitExceededPayload{
		Kind:      ledger.LimitKind(err),
		Stage:     stage,
		Current:   err.Current,
		Requested: err.Requested,
		Limit:     err.Limit,
	}
	n.enqueue(TopicLedgerLimitExceeded, func() error {
		return PublishLimitExceeded(n.pub, payload, WithProducer(Producer))
	})
}

func (n *Notifier) Reconciled(prev *ledger.Snapshot, next ledger.Snapshot, drift ledger.Drift) {
	if !n.enabled() {
		return
	}

	if n.cfg.Ledger.Reconciled {
		payload := LedgerReconciledPayload{
			Totals:     totals(next),
			Seeded:     prev == nil,
			DriftBytes: drift.Bytes,
			DriftFiles: drift.Files,
		}
		if next.LastReconciledAt != nil {
			payload.ReconciledAt = *next.LastReconciledAt
		}

		n.enqueue(TopicLedgerReconciled, func() error {
			return PublishLedgerReconciled(n.pub, payload, WithProducer(Producer))
		})
	}

	if n.cfg.Ledger.Drift && prev != nil && n.driftAlarming(drift) {
		payload := DriftDetectedPayload{
			Previous:       totals(*prev),
			Scanned:        totals(next),
			DriftBytes:     drift.Bytes,
			DriftFiles:     drift.Files,
			ThresholdBytes: n.driftAlert,
		}
		n.enqueue(TopicLedgerDriftDetected, func() error {
			return PublishDriftDetected(n.pub, payload, WithProducer(Producer))
		})
	}
}

// driftAlarming 偏差非零且字节偏差的绝对值达到阈值；只有文件数偏差时在阈值为 0 才告警.
func (n *Notifier) driftAlarming(d ledger.Drift) bool {
	if d.IsZero() {
		return false
	}

	abs := d.Bytes
	if abs < 0 {
		abs = -abs
	}

	return abs >= n.driftAlert
}

func totals(s ledger.Snapshot) LedgerTotals {
	return LedgerTotals{
		TotalBytes:     s.TotalBytes,
		TotalFiles:     s.TotalFiles,
		UploadOpsToday: s.UploadOpsToday,
	}
}
