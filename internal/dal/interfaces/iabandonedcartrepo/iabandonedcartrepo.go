package iabandonedcartrepo

import (
	"context"
	"time"

	"github.com/feyxa/commerce/internal/service/models/abandonedcart"
	"github.com/google/uuid"
)

// IAbandonedCartRepository stores checkout snapshots keyed by (session_id, store_id).
type IAbandonedCartRepository interface {
	// Upsert writes the snapshot unless the existing row is terminal. Reports whether a row was written.
	Upsert(ctx context.Context, c abandonedcart.AbandonedCart) (bool, error)
	// UpdateContact patches contact fields on the session's abandoned rows.
	UpdateContact(ctx context.Context, sessionID uuid.UUID, contact abandonedcart.Contact, now time.Time) (int64, error)
	// MarkCompleted flips the session's abandoned rows to completed.
	MarkCompleted(ctx context.Context, sessionID uuid.UUID, now time.Time) (int64, error)
	// MarkRecovered flips one abandoned row to recovered; abandonedcart.ErrTerminal if it already moved.
	MarkRecovered(ctx context.Context, id uuid.UUID, code string, now time.Time) (abandonedcart.AbandonedCart, error)
	GetByID(ctx context.Context, id uuid.UUID) (abandonedcart.AbandonedCart, error)
	Query(ctx context.Context, filter abandonedcart.QueryModel) ([]abandonedcart.AbandonedCart, error)
}
