package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/feyxa/commerce/internal/dal/functions"
	"github.com/feyxa/commerce/internal/dal/postgres"
	eventlogrepo "github.com/feyxa/commerce/internal/dal/repositories/eventlog/postgres"
	"github.com/feyxa/commerce/internal/otel"
	"github.com/feyxa/commerce/internal/service/services/dispatchsvc"
	"github.com/spf13/viper"
)

// SweepOnce runs a single retry sweep and releases everything it opened. It backs the
// scheduler-driven deployment where no in-process retry worker runs.
func SweepOnce(ctx context.Context) (dispatchsvc.SweepReport, error) {
	otelController := otel.MustInitOtel()
	defer func() {
		if err := otelController.Shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Error("Otel trace provider connection close error", "error", err)
		}
	}()

	postgresClient := postgres.MustNewClient()
	defer postgresClient.Close()

	events := mustNewEventTransport(viper.GetString("events.transport"), functions.MustNewClient())
	defer func() {
		for _, c := range events.closers {
			if err := c.Close(); err != nil {
				slog.Error("Broker connection close error", "error", err)
			}
		}
	}()

	dispatchSvc := dispatchsvc.MustNewDispatchService(
		dispatchsvc.WithEventLogRepository(eventlogrepo.NewEventLogRepository(postgresClient.Pool())),
		dispatchsvc.WithDispatcher(events.dispatcher),
		dispatchsvc.WithBatchSize(viper.GetInt("events.sweep.batch_size")),
		dispatchsvc.WithLease(time.Duration(viper.GetInt("events.sweep.lease_minutes"))*time.Minute),
		dispatchsvc.WithMaxRetries(viper.GetInt("events.max_retries")),
	)

	return dispatchSvc.Sweep(ctx)
}
