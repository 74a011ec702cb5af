package escrowsvc

import (
	"context"
	"testing"
	"time"

	"github.com/feyxa/commerce/internal/dal/mocks"
	"github.com/feyxa/commerce/internal/service/models/escrow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHold_IsIdempotentPerOrder(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	repo := mocks.NewEscrow()
	svc := MustNewEscrowService(
		WithEscrowRepository(repo),
		WithHoldDays(7),
		WithCommissionRate(0.05),
		WithClock(func() time.Time { return now }),
	)
	orderID, storeID := uuid.New(), uuid.New()

	created, err := svc.Hold(context.Background(), orderID, storeID, 25999)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.Hold(context.Background(), orderID, storeID, 25999)
	require.NoError(t, err)
	assert.False(t, created)

	rec, err := svc.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusHeld, rec.Status)
	assert.Equal(t, int64(25999), rec.Amount)
	assert.Equal(t, int64(1299), rec.CommissionAmount)
	assert.Equal(t, now.Add(7*24*time.Hour), rec.ReleaseAt)
}

func TestReleaseAndRefund_OnlyMoveHeldRecords(t *testing.T) {
	repo := mocks.NewEscrow()
	svc := MustNewEscrowService(WithEscrowRepository(repo))
	released, refunded := uuid.New(), uuid.New()

	_, err := svc.Hold(context.Background(), released, uuid.New(), 1000)
	require.NoError(t, err)
	_, err = svc.Hold(context.Background(), refunded, uuid.New(), 1000)
	require.NoError(t, err)

	moved, err := svc.ReleaseForOrder(context.Background(), released)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = svc.RefundForOrder(context.Background(), released)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = svc.RefundForOrder(context.Background(), refunded)
	require.NoError(t, err)
	assert.True(t, moved)

	rec, _ := repo.Get(released)
	assert.Equal(t, escrow.StatusReleased, rec.Status)
	assert.NotNil(t, rec.ReleasedAt)

	rec, _ = repo.Get(refunded)
	assert.Equal(t, escrow.StatusRefunded, rec.Status)
	assert.Nil(t, rec.ReleasedAt)

	moved, err = svc.ReleaseForOrder(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestReleaseDue(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	repo := mocks.NewEscrow()
	svc := MustNewEscrowService(
		WithEscrowRepository(repo),
		WithHoldDays(7),
		WithClock(func() time.Time { return now }),
	)
	orderID := uuid.New()
	_, err := svc.Hold(context.Background(), orderID, uuid.New(), 500)
	require.NoError(t, err)

	released, err := svc.ReleaseDue(context.Background())
	require.NoError(t, err)
	assert.Empty(t, released)

	now = now.Add(8 * 24 * time.Hour)
	released, err = svc.ReleaseDue(context.Background())
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, orderID, released[0].OrderID)
	assert.Equal(t, escrow.StatusReleased, released[0].Status)
}
