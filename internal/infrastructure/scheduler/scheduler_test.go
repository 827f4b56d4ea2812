package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() SchedulerConfig {
	return SchedulerConfig{
		TaskTimeout:   time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
		RunOnStart:    true,
	}
}

func waitRun(t *testing.T, runs <-chan Run) Run {
	t.Helper()
	select {
	case run := <-runs:
		return run
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
		return Run{}
	}
}

func startScheduler(t *testing.T, s *Scheduler) chan Run {
	t.Helper()
	runs := make(chan Run, 16)
	s.OnRun(func(r Run) {
		select {
		case runs <- r:
		default:
		}
	})
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return runs
}

func TestScheduler_RunsTask(t *testing.T) {
	var calls atomic.Int32
	s := NewScheduler(testConfig(), zap.NewNop())
	require.NoError(t, s.Register(TaskFunc{TaskName: "count", Fn: func(context.Context) error {
		calls.Add(1)
		return nil
	}}, 10*time.Millisecond))

	runs := startScheduler(t, s)

	first := waitRun(t, runs)
	assert.Equal(t, "count", first.Task)
	assert.Equal(t, RunStatusSuccess, first.Status)
	assert.Equal(t, 1, first.Attempts)

	waitRun(t, runs)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestScheduler_RetriesFailures(t *testing.T) {
	t.Run("succeeds on a later attempt", func(t *testing.T) {
		var calls atomic.Int32
		s := NewScheduler(testConfig(), nil)
		require.NoError(t, s.Register(TaskFunc{TaskName: "flaky", Fn: func(context.Context) error {
			if calls.Add(1) < 3 {
				return errors.New("transient")
			}
			return nil
		}}, time.Hour))

		run := waitRun(t, startScheduler(t, s))
		assert.Equal(t, RunStatusSuccess, run.Status)
		assert.Equal(t, 3, run.Attempts)
	})

	t.Run("reports failure after the last attempt", func(t *testing.T) {
		s := NewScheduler(testConfig(), nil)
		require.NoError(t, s.Register(TaskFunc{TaskName: "broken", Fn: func(context.Context) error {
			return errors.New("still broken")
		}}, time.Hour))

		run := waitRun(t, startScheduler(t, s))
		assert.Equal(t, RunStatusFailed, run.Status)
		assert.Equal(t, 3, run.Attempts)
		assert.Equal(t, "still broken", run.Error)
	})

	t.Run("a panic is a failed attempt", func(t *testing.T) {
		cfg := testConfig()
		cfg.RetryAttempts = 0
		s := NewScheduler(cfg, nil)
		require.NoError(t, s.Register(TaskFunc{TaskName: "panics", Fn: func(context.Context) error {
			panic("boom")
		}}, time.Hour))

		run := waitRun(t, startScheduler(t, s))
		assert.Equal(t, RunStatusFailed, run.Status)
		assert.Contains(t, run.Error, "boom")
	})
}

func TestScheduler_TaskTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.TaskTimeout = 10 * time.Millisecond
	cfg.RetryAttempts = 0
	s := NewScheduler(cfg, nil)
	require.NoError(t, s.Register(TaskFunc{TaskName: "slow", Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}, time.Hour))

	run := waitRun(t, startScheduler(t, s))
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), run.Error)
}

func TestScheduler_Register(t *testing.T) {
	noop := TaskFunc{TaskName: "noop", Fn: func(context.Context) error { return nil }}

	t.Run("rejects non-positive interval", func(t *testing.T) {
		s := NewScheduler(testConfig(), nil)
		assert.ErrorIs(t, s.Register(noop, 0), ErrInvalidConfig)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		s := NewScheduler(testConfig(), nil)
		require.NoError(t, s.Register(noop, time.Minute))
		assert.ErrorIs(t, s.Register(noop, time.Minute), ErrDuplicateTask)
	})

	t.Run("rejects registration after start", func(t *testing.T) {
		s := NewScheduler(SchedulerConfig{}, nil)
		require.NoError(t, s.Start(context.Background()))
		defer s.Stop(context.Background())
		assert.ErrorIs(t, s.Register(noop, time.Minute), ErrSchedulerRunning)
	})
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(testConfig(), nil)
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
