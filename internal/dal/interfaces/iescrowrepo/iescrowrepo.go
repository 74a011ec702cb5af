package iescrowrepo

import (
	"context"
	"time"

	"github.com/feyxa/commerce/internal/service/models/escrow"
	"github.com/google/uuid"
)

// IEscrowRepository holds funds per order.
type IEscrowRepository interface {
	// Hold creates the record for an order; false when the order already has one.
	Hold(ctx context.Context, r escrow.Record) (bool, error)
	// Transition moves a held record for the order to status; false when it is not held.
	Transition(ctx context.Context, orderID uuid.UUID, to escrow.Status, now time.Time) (bool, error)
	// ReleaseDue releases up to limit held records whose release_at has passed.
	ReleaseDue(ctx context.Context, now time.Time, limit int) ([]escrow.Record, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (escrow.Record, error)
}
