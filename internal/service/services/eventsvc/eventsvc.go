package eventsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/feyxa/commerce/internal/dal/interfaces/ieventlogrepo"
	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/feyxa/commerce/internal/service/models/mail"
	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const defaultLease = 10 * time.Minute

type escrowLedger interface {
	Hold(ctx context.Context, orderID, storeID uuid.UUID, amount int64) (bool, error)
	ReleaseForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	RefundForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type mailer interface {
	SendEmail(ctx context.Context, msg mail.Message) error
}

type handler func(ctx context.Context, e eventlog.Entry) error

// EventService consumes event log rows delivered by any transport.
type EventService struct {
	repo     ieventlogrepo.IEventLogRepository
	escrow   escrowLedger
	mailer   mailer
	lease    time.Duration
	now      func() time.Time
	handlers map[string]handler
}

// option is a function that configures the EventService.
type option func(*EventService)

// MustNewEventService creates a new EventService.
func MustNewEventService(opts ...option) *EventService {
	s := &EventService{
		lease: defaultLease,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.repo == nil || s.escrow == nil || s.mailer == nil {
		panic("event service needs an event log repository, an escrow ledger and a mailer")
	}

	s.handlers = map[string]handler{
		eventlog.EventOrderCreated:       s.handleOrderCreated,
		eventlog.EventOrderStatusChanged: s.handleOrderStatusChanged,
	}

	return s
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithEventLogRepository(repo ieventlogrepo.IEventLogRepository) option {
	return func(s *EventService) {
		s.repo = repo
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithEscrow(e escrowLedger) option {
	return func(s *EventService) {
		s.escrow = e
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithMailer(m mailer) option {
	return func(s *EventService) {
		s.mailer = m
	}
}

// WithLease sets how long a row may stay in processing before the sweep times it out.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLease(d time.Duration) option {
	return func(s *EventService) {
		if d > 0 {
			s.lease = d
		}
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *EventService) {
		s.now = now
	}
}

// Process leases the row named by msg, runs its handler and records the outcome. Handler
// failures are recorded on the row and reported as OutcomeFailed; only storage errors are
// returned. Deliveries for rows that are missing, terminal or leased elsewhere are skipped.
func (s *EventService) Process(ctx context.Context, msg eventlog.Message) (eventlog.Outcome, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Event.Process")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.id", msg.EventID.String()),
		attribute.String("event.type", msg.EventType),
	)

	leased, err := s.repo.MarkProcessing(ctx, msg.EventID, s.now().UTC(), s.lease)
	if err != nil {
		return "", fmt.Errorf("failed to lease event %s: %w", msg.EventID, err)
	}

	entry, err := s.repo.GetByID(ctx, msg.EventID)
	if errors.Is(err, eventlog.ErrEntryNotFound) {
		slog.Warn("Event not found, delivery skipped", "event_id", msg.EventID)

		return eventlog.OutcomeSkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load event %s: %w", msg.EventID, err)
	}
	if !leased {
		slog.Info("Event not leasable, delivery skipped", "event_id", entry.ID, "status", entry.Status)

		return eventlog.OutcomeSkipped, nil
	}

	h, ok := s.handlers[entry.EventType]
	if !ok {
		slog.Warn("No handler for event type, marking processed", "event_id", entry.ID, "event_type", entry.EventType)
	} else if err := h(ctx, entry); err != nil {
		span.RecordError(err)
		slog.Error("Event handler failed", "event_id", entry.ID, "event_type", entry.EventType, "error", err)
		if markErr := s.repo.MarkFailed(ctx, entry.ID, err.Error(), s.now().UTC()); markErr != nil {
			return "", fmt.Errorf("failed to mark event %s failed: %w", entry.ID, markErr)
		}

		return eventlog.OutcomeFailed, nil
	}

	if err := s.repo.MarkProcessed(ctx, entry.ID, s.now().UTC()); err != nil {
		return "", fmt.Errorf("failed to mark event %s processed: %w", entry.ID, err)
	}

	return eventlog.OutcomeProcessed, nil
}

// handleOrderCreated holds the vendor's funds and sends the order confirmation. Both steps are
// safe to repeat on redelivery: a second hold is a no-op.
func (s *EventService) handleOrderCreated(ctx context.Context, e eventlog.Entry) error {
	var p eventlog.OrderCreatedPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return fmt.Errorf("invalid order.created payload: %w", err)
	}

	if _, err := s.escrow.Hold(ctx, e.AggregateID, e.StoreID, p.Total); err != nil {
		return err
	}

	if p.CustomerEmail == "" {
		return nil
	}

	err := s.mailer.SendEmail(ctx, mail.Message{
		To:       p.CustomerEmail,
		Subject:  fmt.Sprintf("Commande %s confirmée", p.OrderNumber),
		Template: mail.TemplateOrderConfirmation,
		Data: map[string]any{
			"order_number":   p.OrderNumber,
			"tracking_token": p.TrackingToken,
			"customer_name":  p.CustomerName,
			"store_name":     p.StoreName,
			"total":          p.Total,
			"currency":       p.Currency,
			"payment_method": p.PaymentMethod,
			"items":          p.Items,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send order confirmation: %w", err)
	}

	return nil
}

func (s *EventService) handleOrderStatusChanged(ctx context.Context, e eventlog.Entry) error {
	var p eventlog.OrderStatusChangedPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return fmt.Errorf("invalid order.status_changed payload: %w", err)
	}

	switch p.To {
	case order.StatusDelivered:
		_, err := s.escrow.ReleaseForOrder(ctx, e.AggregateID)

		return err
	case order.StatusCancelled:
		_, err := s.escrow.RefundForOrder(ctx, e.AggregateID)

		return err
	default:
		return nil
	}
}
