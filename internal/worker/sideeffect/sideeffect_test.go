package sideeffect

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RunsSubmittedTasks(t *testing.T) {
	q := NewQueue(2, 8, time.Second)
	q.Start()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		ok := q.Submit(context.Background(), "count", func(context.Context) error {
			ran.Add(1)

			return nil
		})
		require.True(t, ok)
	}
	q.Close()

	assert.Equal(t, int32(5), ran.Load())
}

func TestQueue_FailingTaskDoesNotStopWorkers(t *testing.T) {
	q := NewQueue(1, 4, time.Second)
	q.Start()

	var ran atomic.Int32
	q.Submit(context.Background(), "fail", func(context.Context) error { return errors.New("boom") })
	q.Submit(context.Background(), "panic", func(context.Context) error { panic("kaboom") })
	q.Submit(context.Background(), "ok", func(context.Context) error {
		ran.Add(1)

		return nil
	})
	q.Close()

	assert.Equal(t, int32(1), ran.Load())
}

func TestQueue_DropsWhenFull(t *testing.T) {
	q := NewQueue(1, 1, time.Second)
	q.Start()

	release := make(chan struct{})
	started := make(chan struct{})
	require.True(t, q.Submit(context.Background(), "block", func(context.Context) error {
		close(started)
		<-release

		return nil
	}))
	<-started

	require.True(t, q.Submit(context.Background(), "queued", func(context.Context) error { return nil }))
	assert.False(t, q.Submit(context.Background(), "dropped", func(context.Context) error { return nil }))

	close(release)
	q.Close()
}

func TestQueue_SubmitAfterCloseIsDropped(t *testing.T) {
	q := NewQueue(1, 1, time.Second)
	q.Start()
	q.Close()
	q.Close()

	assert.False(t, q.Submit(context.Background(), "late", func(context.Context) error { return nil }))
}

func TestQueue_TaskOutlivesSubmitterContext(t *testing.T) {
	q := NewQueue(1, 1, time.Second)
	q.Start()

	ctx, cancel := context.WithCancel(context.Background())
	var (
		wg     sync.WaitGroup
		gotErr error
	)
	wg.Add(1)
	release := make(chan struct{})
	q.Submit(ctx, "detached", func(taskCtx context.Context) error {
		defer wg.Done()
		<-release
		gotErr = taskCtx.Err()

		return nil
	})
	cancel()
	close(release)
	wg.Wait()
	q.Close()

	assert.NoError(t, gotErr)
}

func TestQueue_TaskTimeout(t *testing.T) {
	q := NewQueue(1, 1, 10*time.Millisecond)
	q.Start()

	done := make(chan error, 1)
	q.Submit(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		done <- ctx.Err()

		return ctx.Err()
	})
	q.Close()

	assert.ErrorIs(t, <-done, context.DeadlineExceeded)
}
