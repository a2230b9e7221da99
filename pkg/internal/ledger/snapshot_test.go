package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yeisme/studiovault/pkg/internal/ledger"
)

func TestNormalizeDailyOps(t *testing.T) {
	shanghai := time.FixedZone("UTC+8", 8*3600)
	now := time.Date(2026, 3, 14, 0, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		resetAt    time.Time
		stored     int64
		now        time.Time
		wantCount  int64
		wantRolled bool
	}{
		{name: "same day", resetAt: now.Add(-20 * time.Minute), stored: 9, now: now, wantCount: 9},
		{name: "yesterday", resetAt: now.Add(-24 * time.Hour), stored: 9, now: now, wantCount: 0, wantRolled: true},
		{name: "one minute before midnight", resetAt: time.Date(2026, 3, 13, 23, 59, 0, 0, time.UTC), stored: 3, now: now, wantCount: 0, wantRolled: true},
		{name: "local date differs but same utc day", resetAt: time.Date(2026, 3, 15, 1, 0, 0, 0, shanghai), stored: 4, now: time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC), wantCount: 4},
		{name: "now given in other zone", resetAt: time.Date(2026, 3, 13, 20, 0, 0, 0, time.UTC), stored: 2, now: time.Date(2026, 3, 14, 2, 0, 0, 0, shanghai), wantCount: 2},
		{name: "zero reset time", stored: 5, now: now, wantCount: 0, wantRolled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ledger.NormalizeDailyOps(ledger.Snapshot{UploadOpsToday: tt.stored, UploadOpsResetAt: tt.resetAt}, tt.now)

			assert.Equal(t, tt.wantCount, got.Count)
			assert.Equal(t, tt.wantRolled, got.RolledOver)

			if tt.wantRolled {
				assert.True(t, got.ResetAt.Equal(tt.now))
				assert.Equal(t, time.UTC, got.ResetAt.Location())
			} else {
				assert.True(t, got.ResetAt.Equal(tt.resetAt))
			}
		})
	}
}

func TestLimitErrorMatching(t *testing.T) {
	err := &ledger.LimitError{Kind: ledger.ErrUploadOpsLimitExceeded, Current: 2, Requested: 1, Limit: 2}

	assert.ErrorIs(t, err, ledger.ErrUploadOpsLimitExceeded)
	assert.True(t, ledger.IsLimitError(err))
	assert.Equal(t, "upload_ops_daily", ledger.LimitKind(err))
	assert.Contains(t, err.Error(), "try again tomorrow")
	assert.False(t, ledger.IsLimitError(ledger.ErrConflict))
}
