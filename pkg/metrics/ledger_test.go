package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/metrics"
)

func TestLedgerObserver(t *testing.T) {
	ob := metrics.LedgerObserver{}
	limits := ledger.Limits{StorageBytes: 5 << 30, UploadOpsDaily: 20000}

	ob.SnapshotChanged(ledger.OpUpload, ledger.Snapshot{TotalBytes: 2048, TotalFiles: 3, UploadOpsToday: 7}, limits)

	assert.InDelta(t, 2048, testutil.ToFloat64(metrics.LedgerTotalBytes), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.LedgerTotalFiles), 0)
	assert.InDelta(t, 7, testutil.ToFloat64(metrics.LedgerUploadOpsToday), 0)
	assert.InDelta(t, 20000, testutil.ToFloat64(metrics.LedgerLimit.WithLabelValues("upload_ops_daily")), 0)

	before := testutil.ToFloat64(metrics.LedgerRejections.WithLabelValues("storage_bytes", "guard"))
	ob.LimitExceeded("guard", &ledger.LimitError{Kind: ledger.ErrStorageLimitExceeded, Current: 10, Requested: 5, Limit: 12})
	assert.InDelta(t, before+1, testutil.ToFloat64(metrics.LedgerRejections.WithLabelValues("storage_bytes", "guard")), 0)

	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ob.Reconciled(nil, ledger.Snapshot{LastReconciledAt: &at}, ledger.Drift{Bytes: -512, Files: -1})

	assert.InDelta(t, -512, testutil.ToFloat64(metrics.LedgerDriftBytes), 0)
	assert.InDelta(t, -1, testutil.ToFloat64(metrics.LedgerDriftFiles), 0)
	assert.InDelta(t, float64(at.Unix()), testutil.ToFloat64(metrics.LedgerLastReconciled), 0)
}
