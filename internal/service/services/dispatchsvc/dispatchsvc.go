package dispatchsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/feyxa/commerce/internal/dal/interfaces/ieventlogrepo"
	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultBatchSize = 20
	defaultLease     = 10 * time.Minute
)

// dispatcher hands a message to the event processor over the configured transport.
type dispatcher interface {
	Dispatch(ctx context.Context, msg eventlog.Message) error
}

type sideEffects interface {
	Submit(ctx context.Context, name string, task func(ctx context.Context) error) bool
}

// SweepReport summarises one retry sweep.
type SweepReport struct {
	TimedOut       int64 `json:"timed_out"`
	Exhausted      int   `json:"exhausted"`
	Retried        int   `json:"retried"`
	DispatchFailed int   `json:"dispatch_failed"`
}

// DispatchService appends domain events to the event log and delivers them, retrying failures
// with exponential backoff.
type DispatchService struct {
	repo        ieventlogrepo.IEventLogRepository
	dispatcher  dispatcher
	sideEffects sideEffects
	batchSize   int
	lease       time.Duration
	maxRetries  int
	now         func() time.Time
}

// option is a function that configures the DispatchService.
type option func(*DispatchService)

// MustNewDispatchService creates a new DispatchService.
func MustNewDispatchService(opts ...option) *DispatchService {
	s := &DispatchService{
		batchSize:  defaultBatchSize,
		lease:      defaultLease,
		maxRetries: eventlog.DefaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.repo == nil || s.dispatcher == nil {
		panic("dispatch service needs an event log repository and a dispatcher")
	}

	return s
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithEventLogRepository(repo ieventlogrepo.IEventLogRepository) option {
	return func(s *DispatchService) {
		s.repo = repo
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithDispatcher(d dispatcher) option {
	return func(s *DispatchService) {
		s.dispatcher = d
	}
}

// WithSideEffects makes Publish deliver through the queue instead of inline.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSideEffects(q sideEffects) option {
	return func(s *DispatchService) {
		s.sideEffects = q
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithBatchSize(n int) option {
	return func(s *DispatchService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithLease(d time.Duration) option {
	return func(s *DispatchService) {
		if d > 0 {
			s.lease = d
		}
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithMaxRetries(n int) option {
	return func(s *DispatchService) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *DispatchService) {
		s.now = now
	}
}

// NewEntry builds a pending row. The first retry slot is now + Backoff(0) and the row is
// leased for the first delivery attempt.
func (s *DispatchService) NewEntry(
	eventType, aggregateType string,
	aggregateID, storeID uuid.UUID,
	payload any,
) (eventlog.Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return eventlog.Entry{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	now := s.now().UTC()
	leaseUntil := now.Add(s.lease)

	return eventlog.Entry{
		ID:             uuid.New(),
		EventType:      eventType,
		AggregateType:  aggregateType,
		AggregateID:    aggregateID,
		StoreID:        storeID,
		Payload:        raw,
		Status:         eventlog.StatusPending,
		MaxRetries:     s.maxRetries,
		NextRetryAt:    now.Add(eventlog.Backoff(0)),
		LeaseExpiresAt: &leaseUntil,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Emit appends the entry and attempts the first delivery inline. Only the append can fail.
func (s *DispatchService) Emit(ctx context.Context, entry eventlog.Entry) (eventlog.Entry, error) {
	entry, err := s.repo.Insert(ctx, entry)
	if err != nil {
		return eventlog.Entry{}, err
	}

	s.Deliver(ctx, entry)

	return entry, nil
}

// Publish appends an order event and queues its first delivery. It never fails the caller:
// a lost append is logged, a failed delivery is left to the sweep.
func (s *DispatchService) Publish(ctx context.Context, eventType string, aggregateID, storeID uuid.UUID, payload any) {
	ctx, span := otel.Tracer("service").Start(ctx, "Dispatch.Publish")
	defer span.End()
	span.SetAttributes(attribute.String("event.type", eventType))

	entry, err := s.NewEntry(eventType, eventlog.AggregateOrder, aggregateID, storeID, payload)
	if err != nil {
		slog.Error("Failed to build event", "event_type", eventType, "aggregate_id", aggregateID, "error", err)

		return
	}

	entry, err = s.repo.Insert(ctx, entry)
	if err != nil {
		slog.Error("Failed to append event", "event_type", eventType, "aggregate_id", aggregateID, "error", err)

		return
	}

	if s.sideEffects == nil {
		s.Deliver(ctx, entry)

		return
	}

	accepted := s.sideEffects.Submit(ctx, "dispatch_"+eventType, func(ctx context.Context) error {
		return s.deliver(ctx, entry)
	})
	if !accepted {
		// The lease runs out and the sweep picks the row up.
		slog.Warn("Event delivery not queued", "event_id", entry.ID, "event_type", eventType)
	}
}

// Deliver hands the entry to the dispatcher. A failed call is recorded on the row.
func (s *DispatchService) Deliver(ctx context.Context, entry eventlog.Entry) {
	if err := s.deliver(ctx, entry); err != nil {
		slog.Warn("Event delivery failed", "event_id", entry.ID, "event_type", entry.EventType, "error", err)
	}
}

func (s *DispatchService) deliver(ctx context.Context, entry eventlog.Entry) error {
	err := s.dispatcher.Dispatch(ctx, entry.Message())
	if err == nil {
		return nil
	}

	if markErr := s.repo.MarkFailed(ctx, entry.ID, err.Error(), s.now().UTC()); markErr != nil {
		return errors.Join(err, fmt.Errorf("failed to record dispatch failure: %w", markErr))
	}

	return err
}

// Sweep runs stale-lease maintenance, then claims a batch of due failed rows and re-dispatches
// the ones that still have retries left. Safe to run concurrently with itself.
func (s *DispatchService) Sweep(ctx context.Context) (SweepReport, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Dispatch.Sweep")
	defer span.End()

	var report SweepReport

	timedOut, err := s.repo.ResetStale(ctx, s.now().UTC())
	if err != nil {
		return report, fmt.Errorf("failed to reset stale events: %w", err)
	}
	report.TimedOut = timedOut

	claim, err := s.repo.ClaimDue(ctx, s.now().UTC(), s.batchSize, s.lease)
	if err != nil {
		return report, fmt.Errorf("failed to claim due events: %w", err)
	}
	report.Exhausted = len(claim.Exhausted)

	for _, e := range claim.Exhausted {
		slog.Warn("Event exceeded max retries",
			"event_id", e.ID,
			"event_type", e.EventType,
			"retry_count", e.RetryCount,
			"last_error", e.ErrorMessage,
		)
	}

	for _, e := range claim.Leased {
		if err := s.deliver(ctx, e); err != nil {
			report.DispatchFailed++
			slog.Warn("Event redelivery failed",
				"event_id", e.ID,
				"retry_count", e.RetryCount,
				"next_retry_at", e.NextRetryAt,
				"error", err,
			)

			continue
		}
		report.Retried++
	}

	span.SetAttributes(
		attribute.Int64("sweep.timed_out", report.TimedOut),
		attribute.Int("sweep.exhausted", report.Exhausted),
		attribute.Int("sweep.retried", report.Retried),
		attribute.Int("sweep.dispatch_failed", report.DispatchFailed),
	)
	if report.TimedOut > 0 || report.Exhausted > 0 || len(claim.Leased) > 0 {
		slog.Info("Event sweep finished",
			"timed_out", report.TimedOut,
			"exhausted", report.Exhausted,
			"retried", report.Retried,
			"dispatch_failed", report.DispatchFailed,
		)
	}

	return report, nil
}
