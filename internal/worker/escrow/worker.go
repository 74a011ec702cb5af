package escrow

import (
	"context"
	"log/slog"
	"time"

	escrowmodel "github.com/feyxa/commerce/internal/service/models/escrow"
)

type releaser interface {
	ReleaseDue(ctx context.Context) ([]escrowmodel.Record, error)
}

// Worker releases holds whose release date has passed.
type Worker struct {
	releaser     releaser
	pollInterval time.Duration
	stopCh       chan struct{}
}

// NewWorker creates a new escrow release worker.
func NewWorker(r releaser, pollInterval time.Duration) *Worker {
	return &Worker{
		releaser:     r,
		pollInterval: pollInterval,
		stopCh:       make(chan struct{}),
	}
}

// Start begins releasing due holds.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Escrow worker started", "poll_interval", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Escrow worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Escrow worker stopped")

			return
		case <-ticker.C:
			w.release(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// release drains every due batch so a backlog clears in one tick.
func (w *Worker) release(ctx context.Context) {
	for {
		released, err := w.releaser.ReleaseDue(ctx)
		if err != nil {
			slog.Error("Failed to release due escrow", "error", err)

			return
		}
		if len(released) == 0 || ctx.Err() != nil {
			return
		}
	}
}
