package iorderrepo

import (
	"context"
	"time"

	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/google/uuid"
)

// IOrderRepository is an interface for order postgres repository.
type IOrderRepository interface {
	Insert(ctx context.Context, o order.Order) (order.Order, error)
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (order.Order, error)
	GetByTrackingToken(ctx context.Context, token string) (order.Order, error)
	// UpdateStatus moves the order only if it is still in status from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to order.Status, now time.Time) (bool, error)
}
