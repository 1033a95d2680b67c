package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestQueueDispatchesByKind(t *testing.T) {
	var warmups, cleanups atomic.Int32
	q := NewQueue("test", Config{Workers: 2})
	q.Handle("cache-warmup", func(ctx context.Context, task Task) error {
		warmups.Add(1)
		return nil
	})
	q.Handle("export-cleanup", func(ctx context.Context, task Task) error {
		cleanups.Add(1)
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Task{Kind: "cache-warmup"}))
	require.NoError(t, q.Enqueue(Task{Kind: "export-cleanup"}))
	require.NoError(t, q.Enqueue(Task{Kind: "export-cleanup"}))

	waitFor(t, func() bool { return warmups.Load() == 1 && cleanups.Load() == 2 })
}

func TestQueueRetriesFailedTask(t *testing.T) {
	var attempts atomic.Int32
	q := NewQueue("test", Config{Workers: 1, MaxAttempts: 3, RetryDelay: time.Millisecond})
	q.Handle("cache-warmup", func(ctx context.Context, task Task) error {
		if attempts.Add(1) < 2 {
			return fmt.Errorf("transient")
		}
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Task{Kind: "cache-warmup"}))
	waitFor(t, func() bool { return attempts.Load() == 2 })
}

func TestQueueGivesUpAfterMaxAttempts(t *testing.T) {
	var attempts atomic.Int32
	q := NewQueue("test", Config{Workers: 1, MaxAttempts: 2, RetryDelay: time.Millisecond})
	q.Handle("export-cleanup", func(ctx context.Context, task Task) error {
		attempts.Add(1)
		return fmt.Errorf("persistent")
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Task{Kind: "export-cleanup"}))
	waitFor(t, func() bool { return attempts.Load() == 2 })

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(2), attempts.Load())
}

func TestQueueRecurringTask(t *testing.T) {
	var runs atomic.Int32
	q := NewQueue("test", Config{Workers: 1})
	q.Handle("export-cleanup", func(ctx context.Context, task Task) error {
		runs.Add(1)
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	q.Every(10*time.Millisecond, Task{Kind: "export-cleanup"})
	waitFor(t, func() bool { return runs.Load() >= 3 })
}

func TestQueueRejectsEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", Config{})
	require.Error(t, q.Enqueue(Task{Kind: "cache-warmup"}))
}
