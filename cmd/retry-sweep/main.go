package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/feyxa/commerce/internal/app"
	"github.com/feyxa/commerce/internal/config"
)

// retry-sweep runs one event retry sweep and exits, for cron-style schedulers.
func main() {
	config.MustInit()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := app.SweepOnce(ctx)
	if err != nil {
		slog.Error("Retry sweep failed", "error", err)
		stop()
		os.Exit(1)
	}

	slog.Info("Retry sweep finished",
		"timed_out", report.TimedOut,
		"exhausted", report.Exhausted,
		"retried", report.Retried,
		"dispatch_failed", report.DispatchFailed,
	)
}
