package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/jobs"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/scheduler"
)

type stubReconciler struct {
	calls chan struct{}
	err   error
}

func (s *stubReconciler) Reconcile(context.Context) (ledger.Snapshot, error) {
	s.calls <- struct{}{}

	return ledger.Snapshot{TotalBytes: 60, TotalFiles: 3}, s.err
}

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	return s
}

func TestRegisterCronJobsDisabled(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, jobs.RegisterCronJobs(context.Background(), s, nil, configs.LedgerConfig{}))
	assert.Empty(t, s.GetJobInfos())
}

func TestRegisterCronJobsReconcile(t *testing.T) {
	s := newScheduler(t)
	rec := &stubReconciler{calls: make(chan struct{}, 1), err: errors.New("s3 unavailable")}

	require.NoError(t, jobs.RegisterCronJobs(context.Background(), s, rec, configs.LedgerConfig{ReconcileCron: "15 4 * * *"}))

	info, err := s.GetJobInfoByName(jobs.JobLedgerReconcile)
	require.NoError(t, err)
	assert.Equal(t, "15 4 * * *", info.CronExpr)

	s.Start()
	require.NoError(t, s.RunNow(jobs.JobLedgerReconcile))

	select {
	case <-rec.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("reconcile job did not run")
	}

	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName(jobs.JobLedgerReconcile)

		return err == nil && info.Status == scheduler.StatusError
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegisterCronJobsInvalid(t *testing.T) {
	require.Error(t, jobs.RegisterCronJobs(context.Background(), nil, nil, configs.LedgerConfig{ReconcileCron: "0 3 * * *"}))

	s := newScheduler(t)
	require.Error(t, jobs.RegisterCronJobs(context.Background(), s, nil, configs.LedgerConfig{ReconcileCron: "0 3 * * *"}))
	require.Error(t, jobs.RegisterCronJobs(context.Background(), s, &stubReconciler{}, configs.LedgerConfig{ReconcileCron: "not cron"}))
}
