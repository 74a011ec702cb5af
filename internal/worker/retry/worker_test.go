package retry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/feyxa/commerce/internal/service/services/dispatchsvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) Sweep(context.Context) (dispatchsvc.SweepReport, error) {
	s.calls.Add(1)

	return dispatchsvc.SweepReport{Retried: 1}, s.err
}

func TestWorker_SweepsOnEveryTick(t *testing.T) {
	s := &countingSweeper{}
	w := NewWorkerWithInterval(s, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	w.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorker_KeepsRunningAfterSweepError(t *testing.T) {
	s := &countingSweeper{err: errors.New("db down")}
	w := NewWorkerWithInterval(s, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	return &buf
}

func TestWorker_SweepDoesNotRepeatSweeperSummary(t *testing.T) {
	logs := captureLogs(t)
	s := &countingSweeper{}
	w := NewWorkerWithInterval(s, time.Hour)

	w.sweep(context.Background())

	require.Equal(t, int32(1), s.calls.Load())
	assert.NotContains(t, logs.String(), "Event sweep finished")
}

func TestWorker_SweepLogsFailure(t *testing.T) {
	logs := captureLogs(t)
	w := NewWorkerWithInterval(&countingSweeper{err: errors.New("db down")}, time.Hour)

	w.sweep(context.Background())

	assert.Contains(t, logs.String(), "Event sweep failed")
	assert.Contains(t, logs.String(), "db down")
}
