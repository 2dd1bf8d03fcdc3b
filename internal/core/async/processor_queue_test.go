package async_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/lantern/internal/core/async"
)

func TestProcessorQueue_RunsEveryJob(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	h := async.HandlerFunc(func(_ context.Context, id string) error {
		mu.Lock()
		seen[id]++
		mu.Unlock()
		return nil
	})
	q := async.NewProcessorQueue(h, nil, async.WithWorkers(3), async.WithQueueSize(2))

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, q.Enqueue(context.Background(), async.Job{JobID: id, Reason: "upload"}))
	}
	q.Shutdown(context.Background())

	assert.Len(t, seen, 5)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}

func TestProcessorQueue_DedupesInflight(t *testing.T) {
	release := make(chan struct{})
	var runs atomic.Int32
	h := async.HandlerFunc(func(context.Context, string) error {
		runs.Add(1)
		<-release
		return nil
	})
	q := async.NewProcessorQueue(h, nil, async.WithWorkers(1))

	require.NoError(t, q.Enqueue(context.Background(), async.Job{JobID: "same"}))
	require.NoError(t, q.Enqueue(context.Background(), async.Job{JobID: "same"}))
	close(release)
	q.Shutdown(context.Background())

	assert.Equal(t, int32(1), runs.Load())
}

func TestProcessorQueue_HandlerErrorDoesNotStopWorkers(t *testing.T) {
	var runs atomic.Int32
	h := async.HandlerFunc(func(_ context.Context, id string) error {
		runs.Add(1)
		if id == "bad" {
			return errors.New("boom")
		}
		return nil
	})
	q := async.NewProcessorQueue(h, nil, async.WithWorkers(1))
	require.NoError(t, q.Enqueue(context.Background(), async.Job{JobID: "bad"}))
	require.NoError(t, q.Enqueue(context.Background(), async.Job{JobID: "good"}))
	q.Shutdown(context.Background())

	assert.Equal(t, int32(2), runs.Load())
}

func TestProcessorQueue_TimeoutAppliesToHandler(t *testing.T) {
	done := make(chan error, 1)
	h := async.HandlerFunc(func(ctx context.Context, _ string) error {
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	})
	q := async.NewProcessorQueue(h, nil, async.WithWorkers(1), async.WithProcessTimeout(20*time.Millisecond))
	require.NoError(t, q.Enqueue(context.Background(), async.Job{JobID: "slow"}))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("handler context never expired")
	}
	q.Shutdown(context.Background())
}

func TestProcessorQueue_EnqueueAfterShutdown(t *testing.T) {
	q := async.NewProcessorQueue(async.HandlerFunc(func(context.Context, string) error { return nil }), nil)
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), async.Job{JobID: "late"})
	assert.ErrorIs(t, err, async.ErrQueueClosed)
}
