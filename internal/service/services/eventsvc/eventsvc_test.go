package eventsvc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/feyxa/commerce/internal/dal/mocks"
	"github.com/feyxa/commerce/internal/service/models/escrow"
	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/feyxa/commerce/internal/service/models/mail"
	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/feyxa/commerce/internal/service/services/escrowsvc"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *EventService
	log    *mocks.EventLog
	escrow *mocks.Escrow
	mailer *mocks.Mailer
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	clock := func() time.Time { return testNow }
	f := fixture{
		log:    mocks.NewEventLog(),
		escrow: mocks.NewEscrow(),
		mailer: &mocks.Mailer{},
	}
	ledger := escrowsvc.MustNewEscrowService(
		escrowsvc.WithEscrowRepository(f.escrow),
		escrowsvc.WithClock(clock),
	)
	f.svc = MustNewEventService(
		WithEventLogRepository(f.log),
		WithEscrow(ledger),
		WithMailer(f.mailer),
		WithClock(clock),
	)

	return f
}

func pendingEntry(t *testing.T, eventType string, payload any) eventlog.Entry {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	lease := testNow.Add(10 * time.Minute)

	return eventlog.Entry{
		ID:             uuid.New(),
		EventType:      eventType,
		AggregateType:  eventlog.AggregateOrder,
		AggregateID:    uuid.New(),
		StoreID:        uuid.New(),
		Payload:        raw,
		Status:         eventlog.StatusPending,
		MaxRetries:     eventlog.DefaultMaxRetries,
		NextRetryAt:    testNow.Add(eventlog.Backoff(0)),
		LeaseExpiresAt: &lease,
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
}

func createdPayload(email string) eventlog.OrderCreatedPayload {
	return eventlog.OrderCreatedPayload{
		OrderNumber:   "FX-LZ8K2A1B-X7Q",
		TrackingToken: "abc",
		Total:         17000,
		Currency:      "XOF",
		CustomerEmail: email,
		CustomerName:  "Awa",
		StoreName:     "Boutique A",
		PaymentMethod: order.PaymentMethodCOD,
	}
}

func TestProcess_OrderCreatedHoldsEscrowAndSendsConfirmation(t *testing.T) {
	f := newFixture(t)
	e := pendingEntry(t, eventlog.EventOrderCreated, createdPayload("awa@example.com"))
	f.log.Put(e)

	outcome, err := f.svc.Process(context.Background(), e.Message())
	require.NoError(t, err)
	assert.Equal(t, eventlog.OutcomeProcessed, outcome)

	got, _ := f.log.Get(e.ID)
	assert.Equal(t, eventlog.StatusProcessed, got.Status)
	assert.Nil(t, got.LeaseExpiresAt)
	require.NotNil(t, got.ProcessedAt)

	rec, ok := f.escrow.Get(e.AggregateID)
	require.True(t, ok)
	assert.Equal(t, escrow.StatusHeld, rec.Status)
	assert.Equal(t, int64(17000), rec.Amount)
	assert.Equal(t, e.StoreID, rec.StoreID)

	sent := f.mailer.Messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "awa@example.com", sent[0].To)
	assert.Equal(t, mail.TemplateOrderConfirmation, sent[0].Template)
	assert.Equal(t, "FX-LZ8K2A1B-X7Q", sent[0].Data["order_number"])
}

func TestProcess_OrderCreatedWithoutEmailSkipsMail(t *testing.T) {
	f := newFixture(t)
	e := pendingEntry(t, eventlog.EventOrderCreated, createdPayload(""))
	f.log.Put(e)

	outcome, err := f.svc.Process(context.Background(), e.Message())
	require.NoError(t, err)
	assert.Equal(t, eventlog.OutcomeProcessed, outcome)
	assert.Empty(t, f.mailer.Messages())
}

func TestProcess_HandlerFailureRecordedOnRow(t *testing.T) {
	f := newFixture(t)
	f.mailer.Err = errors.New("smtp down")
	e := pendingEntry(t, eventlog.EventOrderCreated, createdPayload("awa@example.com"))
	f.log.Put(e)

	outcome, err := f.svc.Process(context.Background(), e.Message())
	require.NoError(t, err)
	assert.Equal(t, eventlog.OutcomeFailed, outcome)

	got, _ := f.log.Get(e.ID)
	assert.Equal(t, eventlog.StatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "smtp down")
	assert.Nil(t, got.LeaseExpiresAt)

	// The retry holds nothing twice.
	f.mailer.Err = nil
	outcome, err = f.svc.Process(context.Background(), e.Message())
	require.NoError(t, err)
	assert.Equal(t, eventlog.OutcomeProcessed, outcome)
	rec, ok := f.escrow.Get(e.AggregateID)
	require.True(t, ok)
	assert.Equal(t, escrow.StatusHeld, rec.Status)
	assert.Len(t, f.mailer.Messages(), 1)
}

func TestProcess_SkipsTerminalRows(t *testing.T) {
	f := newFixture(t)
	e := pendingEntry(t, eventlog.EventOrderCreated, createdPayload(""))
	e.Status = eventlog.StatusProcessed
	f.log.Put(e)

	outcome, err := f.svc.Process(context.Background(), e.Message())
	require.NoError(t, err)
	assert.Equal(t, eventlog.OutcomeSkipped, outcome)

	_, held := f.escrow.Get(e.AggregateID)
	assert.False(t, held)
}

func TestProcess_SkipsRowsLeasedElsewhere(t *testing.T) {
	f := newFixture(t)
	e := pendingEntry(t, eventlog.EventOrderCreated, createdPayload(""))
	e.Status = eventlog.StatusProcessing
	f.log.Put(e)

	outcome, err := f.svc.Process(context.Background(), e.Message())
	require.NoError(t, err)
	assert.Equal(t, eventlog.OutcomeSkipped, outcome)

	got, _ := f.log.Get(e.ID)
	assert.Equal(t, eventlog.StatusProcessing, got.Status)
}

func TestProcess_SkipsUnknownEventID(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.svc.Process(context.Background(), eventlog.Message{
		EventID:   uuid.New(),
		EventType: eventlog.EventOrderCreated,
	})
	require.NoError(t, err)
	assert.Equal(t, eventlog.OutcomeSkipped, outcome)
}

func TestProcess_UsesStoredPayload(t *testing.T) {
	f := newFixture(t)
	e := pendingEntry(t, eventlog.EventOrderCreated, createdPayload(""))
	f.log.Put(e)

	msg := e.Message()
	msg.Payload = json.RawMessage(`{"total":1}`)
	_, err := f.svc.Process(context.Background(), msg)
	require.NoError(t, err)

	rec, ok := f.escrow.Get(e.AggregateID)
	require.True(t, ok)
	assert.Equal(t, int64(17000), rec.Amount)
}

func TestProcess_StatusChangedMovesEscrow(t *testing.T) {
	tests := []struct {
		name string
		to   order.Status
		want escrow.Status
	}{
		{name: "delivered releases", to: order.StatusDelivered, want: escrow.StatusReleased},
		{name: "cancelled refunds", to: order.StatusCancelled, want: escrow.StatusRefunded},
		{name: "shipped keeps hold", to: order.StatusShipped, want: escrow.StatusHeld},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			e := pendingEntry(t, eventlog.EventOrderStatusChanged, eventlog.OrderStatusChangedPayload{
				OrderNumber: "FX-1",
				From:        order.StatusPreparing,
				To:          tt.to,
			})
			_, err := f.escrow.Hold(context.Background(), escrow.Record{
				OrderID:   e.AggregateID,
				StoreID:   e.StoreID,
				Amount:    5000,
				ReleaseAt: testNow.Add(24 * time.Hour),
			})
			require.NoError(t, err)
			f.log.Put(e)

			outcome, err := f.svc.Process(context.Background(), e.Message())
			require.NoError(t, err)
			assert.Equal(t, eventlog.OutcomeProcessed, outcome)

			rec, _ := f.escrow.Get(e.AggregateID)
			assert.Equal(t, tt.want, rec.Status)
		})
	}
}

func TestProcess_UnknownTypeIsProcessed(t *testing.T) {
	f := newFixture(t)
	e := pendingEntry(t, "store.renamed", map[string]string{"name": "x"})
	f.log.Put(e)

	outcome, err := f.svc.Process(context.Background(), e.Message())
	require.NoError(t, err)
	assert.Equal(t, eventlog.OutcomeProcessed, outcome)
}

func TestProcess_RetriesFailedRow(t *testing.T) {
	f := newFixture(t)
	e := pendingEntry(t, eventlog.EventOrderCreated, createdPayload(""))
	e.Status = eventlog.StatusFailed
	e.LeaseExpiresAt = nil
	f.log.Put(e)

	outcome, err := f.svc.Process(context.Background(), e.Message())
	require.NoError(t, err)
	assert.Equal(t, eventlog.OutcomeProcessed, outcome)
}

func TestProcess_SkipsFailedRowWithoutRetriesLeft(t *testing.T) {
	f := newFixture(t)
	e := pendingEntry(t, eventlog.EventOrderCreated, createdPayload(""))
	e.Status = eventlog.StatusFailed
	e.RetryCount = e.MaxRetries
	e.LeaseExpiresAt = nil
	f.log.Put(e)

	outcome, err := f.svc.Process(context.Background(), e.Message())
	require.NoError(t, err)
	assert.Equal(t, eventlog.OutcomeSkipped, outcome)

	got, _ := f.log.Get(e.ID)
	assert.Equal(t, eventlog.StatusFailed, got.Status)
	_, held := f.escrow.Get(e.AggregateID)
	assert.False(t, held)
}
