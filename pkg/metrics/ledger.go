package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/studiovault/pkg/internal/ledger"
)

const namespace = "studiovault"

// 账本指标.
var (
	LedgerTotalBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "ledger",
		Name: "total_bytes",
		Help: "Bytes currently accounted for in the storage ledger",
	})

	LedgerTotalFiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "ledger",
		Name: "total_files",
		Help: "Objects currently accounted for in the storage ledger",
	})

	LedgerUploadOpsToday = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "ledger",
		Name: "upload_ops_today",
		Help: "Uploads counted in the current UTC day",
	})

	LedgerLimit = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "ledger",
		Name: "limit",
		Help: "Configured ledger limits, 0 means unlimited",
	}, []string{"kind"})

	LedgerWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "ledger",
		Name: "writes_total",
		Help: "Successful ledger writes by operation",
	}, []string{"op"})

	LedgerRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "ledger",
		Name: "rejections_total",
		Help: "Quota rejections by limit kind and stage (guard or record)",
	}, []string{"kind", "stage"})

	LedgerDriftBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "ledger",
		Name: "drift_bytes",
		Help: "Byte difference found by the last reconcile (scanned minus recorded)",
	})

	LedgerDriftFiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "ledger",
		Name: "drift_files",
		Help: "File count difference found by the last reconcile",
	})

	LedgerLastReconciled = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "ledger",
		Name: "last_reconciled_timestamp_seconds",
		Help: "Unix time of the last successful reconcile",
	})
)

func ledgerCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		LedgerTotalBytes, LedgerTotalFiles, LedgerUploadOpsToday, LedgerLimit,
		LedgerWrites, LedgerRejections, LedgerDriftBytes, LedgerDriftFiles, LedgerLastReconciled,
	}
}

// LedgerObserver 把账本事件同步到 Prometheus 指标.
type LedgerObserver struct{}

var _ ledger.Observer = LedgerObserver{}

func (LedgerObserver) SnapshotChanged(op string, snap ledger.Snapshot, limits ledger.Limits) {
	LedgerWrites.WithLabelValues(op).Inc()
	LedgerTotalBytes.Set(float64(snap.TotalBytes))
	LedgerTotalFiles.Set(float64(snap.TotalFiles))
	LedgerUploadOpsToday.Set(float64(snap.UploadOpsToday))
	SetLedgerLimits(limits)
}

// SetLedgerLimits 导出配额上限，启动时调用一次，之后随每次写入刷新.
func SetLedgerLimits(limits ledger.Limits) {
	LedgerLimit.WithLabelValues("storage_bytes").Set(float64(limits.StorageBytes))
	LedgerLimit.WithLabelValues("upload_ops_daily").Set(float64(limits.UploadOpsDaily))
}

func (LedgerObserver) LimitExceeded(stage string, err *ledger.LimitError) {
	LedgerRejections.WithLabelValues(ledger.LimitKind(err), stage).Inc()
}

func (LedgerObserver) Reconciled(_ *ledger.Snapshot, next ledger.Snapshot, drift ledger.Drift) {
	LedgerDriftBytes.Set(float64(drift.Bytes))
	LedgerDriftFiles.Set(float64(drift.Files))

	if next.LastReconciledAt != nil {
		LedgerLastReconciled.Set(float64(next.LastReconciledAt.Unix()))
	}
}
