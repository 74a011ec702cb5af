package dispatchsvc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/feyxa/commerce/internal/dal/mocks"
	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, opts ...option) (*DispatchService, *mocks.EventLog, *mocks.Dispatcher) {
	t.Helper()

	log := mocks.NewEventLog()
	d := &mocks.Dispatcher{}
	base := []option{
		WithEventLogRepository(log),
		WithDispatcher(d),
		WithClock(func() time.Time { return testNow }),
	}

	return MustNewDispatchService(append(base, opts...)...), log, d
}

func failedEntry(retryCount, maxRetries int, nextRetryAt time.Time) eventlog.Entry {
	return eventlog.Entry{
		ID:            uuid.New(),
		EventType:     eventlog.EventOrderCreated,
		AggregateType: eventlog.AggregateOrder,
		AggregateID:   uuid.New(),
		StoreID:       uuid.New(),
		Payload:       json.RawMessage(`{}`),
		Status:        eventlog.StatusFailed,
		RetryCount:    retryCount,
		MaxRetries:    maxRetries,
		NextRetryAt:   nextRetryAt,
		ErrorMessage:  "upstream 502",
		CreatedAt:     testNow.Add(-time.Hour),
	}
}

func TestSweep_RetriesDueEventWithBackoff(t *testing.T) {
	svc, log, d := newService(t)
	e := failedEntry(2, 3, testNow.Add(-time.Minute))
	log.Put(e)

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	got, _ := log.Get(e.ID)
	assert.Equal(t, 3, got.RetryCount)
	assert.Equal(t, testNow.Add(135*time.Minute), got.NextRetryAt)
	assert.Equal(t, eventlog.StatusPending, got.Status)
	require.NotNil(t, got.LeaseExpiresAt)
	assert.True(t, got.LeaseExpiresAt.After(testNow))

	require.Equal(t, 1, d.Calls())
	assert.Equal(t, e.ID, d.Messages[0].EventID)
	assert.Equal(t, SweepReport{Retried: 1}, report)
}

func TestSweep_ExhaustedEventIsTerminalWithoutCall(t *testing.T) {
	svc, log, d := newService(t)
	e := failedEntry(3, 3, testNow.Add(-time.Minute))
	log.Put(e)

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	got, _ := log.Get(e.ID)
	assert.Equal(t, eventlog.StatusMaxRetriesExceeded, got.Status)
	assert.Equal(t, 3, got.RetryCount)
	assert.Zero(t, d.Calls())
	assert.Equal(t, 1, report.Exhausted)

	// A second sweep never touches it again.
	_, err = svc.Sweep(context.Background())
	require.NoError(t, err)
	again, _ := log.Get(e.ID)
	assert.Equal(t, eventlog.StatusMaxRetriesExceeded, again.Status)
	assert.Zero(t, d.Calls())
}

func TestSweep_SkipsEventsNotYetDue(t *testing.T) {
	svc, log, d := newService(t)
	e := failedEntry(1, 3, testNow.Add(time.Minute))
	log.Put(e)

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	got, _ := log.Get(e.ID)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, eventlog.StatusFailed, got.Status)
	assert.Zero(t, d.Calls())
	assert.Equal(t, SweepReport{}, report)
}

func TestSweep_TimesOutStaleLeasesFirst(t *testing.T) {
	svc, log, d := newService(t)

	expired := testNow.Add(-time.Second)
	stale := failedEntry(0, 3, testNow.Add(-time.Minute))
	stale.Status = eventlog.StatusProcessing
	stale.LeaseExpiresAt = &expired
	log.Put(stale)

	live := testNow.Add(time.Minute)
	busy := failedEntry(0, 3, testNow.Add(-time.Minute))
	busy.Status = eventlog.StatusProcessing
	busy.LeaseExpiresAt = &live
	log.Put(busy)

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.TimedOut)

	// The timed-out row became failed and, being due, was claimed in the same sweep.
	got, _ := log.Get(stale.ID)
	assert.Equal(t, eventlog.StatusPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, 1, report.Retried)

	untouched, _ := log.Get(busy.ID)
	assert.Equal(t, eventlog.StatusProcessing, untouched.Status)
	assert.Equal(t, 1, d.Calls())
}

func TestSweep_RecordsDispatchFailure(t *testing.T) {
	svc, log, d := newService(t)
	d.Err = errors.New("dial tcp: connection refused")
	e := failedEntry(0, 3, testNow.Add(-time.Minute))
	log.Put(e)

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.DispatchFailed)
	assert.Zero(t, report.Retried)

	got, _ := log.Get(e.ID)
	assert.Equal(t, eventlog.StatusFailed, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, "dial tcp: connection refused", got.ErrorMessage)
	assert.Equal(t, testNow.Add(15*time.Minute), got.NextRetryAt)
}

func TestSweep_HonoursBatchSizeOldestFirst(t *testing.T) {
	svc, log, d := newService(t, WithBatchSize(2))
	oldest := failedEntry(0, 3, testNow.Add(-3*time.Hour))
	middle := failedEntry(0, 3, testNow.Add(-2*time.Hour))
	newest := failedEntry(0, 3, testNow.Add(-time.Hour))
	for _, e := range []eventlog.Entry{newest, oldest, middle} {
		log.Put(e)
	}

	_, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, d.Calls())
	assert.Equal(t, oldest.ID, d.Messages[0].EventID)
	assert.Equal(t, middle.ID, d.Messages[1].EventID)
	untouched, _ := log.Get(newest.ID)
	assert.Equal(t, eventlog.StatusFailed, untouched.Status)
}

func TestSweep_NeverExceedsMaxRetries(t *testing.T) {
	svc, log, d := newService(t)
	d.Err = errors.New("still down")
	e := failedEntry(0, 3, testNow.Add(-time.Minute))
	log.Put(e)

	now := testNow
	svc.now = func() time.Time { return now }
	for i := 0; i < 10; i++ {
		_, err := svc.Sweep(context.Background())
		require.NoError(t, err)
		now = now.Add(24 * time.Hour)

		got, _ := log.Get(e.ID)
		assert.LessOrEqual(t, got.RetryCount, got.MaxRetries)
	}

	got, _ := log.Get(e.ID)
	assert.Equal(t, eventlog.StatusMaxRetriesExceeded, got.Status)
	assert.Equal(t, 3, d.Calls())
}

func TestNewEntry(t *testing.T) {
	svc, _, _ := newService(t, WithMaxRetries(5), WithLease(time.Minute))
	aggregateID, storeID := uuid.New(), uuid.New()

	e, err := svc.NewEntry(eventlog.EventOrderCreated, eventlog.AggregateOrder, aggregateID, storeID,
		map[string]string{"order_number": "FX-1"})
	require.NoError(t, err)

	assert.Equal(t, eventlog.StatusPending, e.Status)
	assert.Equal(t, 5, e.MaxRetries)
	assert.Zero(t, e.RetryCount)
	assert.Equal(t, testNow.Add(5*time.Minute), e.NextRetryAt)
	require.NotNil(t, e.LeaseExpiresAt)
	assert.Equal(t, testNow.Add(time.Minute), *e.LeaseExpiresAt)
	assert.JSONEq(t, `{"order_number":"FX-1"}`, string(e.Payload))
}

func TestEmit_DispatchFailureMarksRowFailed(t *testing.T) {
	svc, log, d := newService(t)
	d.Err = errors.New("broker down")

	e, err := svc.NewEntry(eventlog.EventOrderCreated, eventlog.AggregateOrder, uuid.New(), uuid.New(), struct{}{})
	require.NoError(t, err)

	_, err = svc.Emit(context.Background(), e)
	require.NoError(t, err)

	got, ok := log.Get(e.ID)
	require.True(t, ok)
	assert.Equal(t, eventlog.StatusFailed, got.Status)
	assert.Equal(t, "broker down", got.ErrorMessage)
	assert.Zero(t, got.RetryCount)
}

func TestEmit_InsertFailureIsReturned(t *testing.T) {
	svc, log, d := newService(t)
	log.InsertErr = errors.New("db down")

	e, err := svc.NewEntry(eventlog.EventOrderCreated, eventlog.AggregateOrder, uuid.New(), uuid.New(), struct{}{})
	require.NoError(t, err)

	_, err = svc.Emit(context.Background(), e)
	assert.ErrorIs(t, err, log.InsertErr)
	assert.Zero(t, d.Calls())
}

func TestPublish_QueuesDelivery(t *testing.T) {
	queue := &mocks.SideEffects{}
	svc, log, d := newService(t, WithSideEffects(queue))

	aggregateID := uuid.New()
	svc.Publish(context.Background(), eventlog.EventOrderStatusChanged, aggregateID, uuid.New(),
		eventlog.OrderStatusChangedPayload{OrderNumber: "FX-1", From: "shipped", To: "delivered"})

	require.Len(t, log.All(), 1)
	assert.Equal(t, []string{"dispatch_order.status_changed"}, queue.Names)
	require.Equal(t, 1, d.Calls())
	assert.Equal(t, aggregateID, d.Messages[0].AggregateID)
}

func TestPublish_RejectedQueueLeavesRowForSweep(t *testing.T) {
	queue := &mocks.SideEffects{Reject: true}
	svc, log, d := newService(t, WithSideEffects(queue))

	svc.Publish(context.Background(), eventlog.EventOrderCreated, uuid.New(), uuid.New(), struct{}{})

	rows := log.All()
	require.Len(t, rows, 1)
	assert.Equal(t, eventlog.StatusPending, rows[0].Status)
	assert.Zero(t, d.Calls())
}

func TestPublish_AppendFailureIsSwallowed(t *testing.T) {
	svc, log, d := newService(t)
	log.InsertErr = errors.New("db down")

	assert.NotPanics(t, func() {
		svc.Publish(context.Background(), eventlog.EventOrderCreated, uuid.New(), uuid.New(), struct{}{})
	})
	assert.Zero(t, d.Calls())
}
