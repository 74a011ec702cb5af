package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/feyxa/commerce/internal/service/services/dispatchsvc"
	"github.com/spf13/viper"
)

type sweeper interface {
	Sweep(ctx context.Context) (dispatchsvc.SweepReport, error)
}

// Worker re-dispatches failed events on a fixed interval.
type Worker struct {
	sweeper      sweeper
	pollInterval time.Duration
	stopCh       chan struct{}
}

// NewWorker creates a new retry worker.
func NewWorker(s sweeper) *Worker {
	intervalSeconds := viper.GetInt("events.sweep.interval_seconds")
	if intervalSeconds == 0 {
		intervalSeconds = 60
	}

	return NewWorkerWithInterval(s, time.Duration(intervalSeconds)*time.Second)
}

func NewWorkerWithInterval(s sweeper, interval time.Duration) *Worker {
	return &Worker{
		sweeper:      s,
		pollInterval: interval,
		stopCh:       make(chan struct{}),
	}
}

// Start sweeps until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Retry worker started", "poll_interval", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Retry worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Retry worker stopped")

			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// sweep leaves the summary log to the sweeper.
func (w *Worker) sweep(ctx context.Context) {
	if _, err := w.sweeper.Sweep(ctx); err != nil {
		slog.Error("Event sweep failed", "error", err)
	}
}
