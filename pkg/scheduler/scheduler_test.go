package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/studiovault/pkg/scheduler"
)

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	return s
}

func TestAddCronRejectsDuplicatesAndBadExpr(t *testing.T) {
	s := newScheduler(t)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.AddCron(context.Background(), "ledger-reconcile", "0 3 * * *", noop))
	require.Error(t, s.AddCron(context.Background(), "ledger-reconcile", "0 4 * * *", noop))
	require.Error(t, s.AddCron(context.Background(), "broken", "every day", noop))

	infos := s.GetJobInfos()
	require.Len(t, infos, 1)
	assert.Equal(t, "ledger-reconcile", infos[0].Name)
	assert.Equal(t, scheduler.StatusScheduled, infos[0].Status)
}

func TestJobInfoReportsNextRunAfterStart(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, s.AddCron(context.Background(), "ledger-reconcile", "0 3 * * *", func(context.Context) error { return nil }))
	s.Start()

	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("ledger-reconcile")

		return err == nil && !info.NextRun.IsZero()
	}, 2*time.Second, 10*time.Millisecond)

	info, err := s.GetJobInfoByName("ledger-reconcile")
	require.NoError(t, err)
	assert.Equal(t, 3, info.NextRun.UTC().Hour())
	assert.True(t, info.NextRun.After(time.Now()))
}

func TestRunNowRecordsOutcome(t *testing.T) {
	s := newScheduler(t)

	var calls atomic.Int32

	boom := errors.New("listing interrupted")

	require.NoError(t, s.AddCron(context.Background(), "flaky", "0 3 * * *", func(context.Context) error {
		if calls.Add(1) == 1 {
			return boom
		}

		return nil
	}))
	s.Start()

	require.NoError(t, s.RunNow("flaky"))
	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("flaky")

		return err == nil && info.Runs == 1
	}, 2*time.Second, 10*time.Millisecond)

	info, err := s.GetJobInfoByName("flaky")
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusError, info.Status)
	assert.Equal(t, boom.Error(), info.Error)

	require.NoError(t, s.RunNow("flaky"))
	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("flaky")

		return err == nil && info.Runs == 2
	}, 2*time.Second, 10*time.Millisecond)

	info, err = s.GetJobInfoByName("flaky")
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusScheduled, info.Status)
	assert.Empty(t, info.Error)
	assert.False(t, info.LastSuccess.IsZero())
}

func TestRemoveJob(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, s.AddCron(context.Background(), "a", "0 3 * * *", func(context.Context) error { return nil }))

	require.ErrorIs(t, s.RunNow("missing"), scheduler.ErrJobNotFound)
	require.ErrorIs(t, s.RemoveJob(uuid.New()), scheduler.ErrJobNotFound)

	require.NoError(t, s.RemoveJobByName("a"))
	assert.Empty(t, s.GetJobInfos())

	_, err := s.GetJobInfoByName("a")
	require.ErrorIs(t, err, scheduler.ErrJobNotFound)
}
