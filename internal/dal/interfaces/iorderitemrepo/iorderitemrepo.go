package iorderitemrepo

import (
	"context"

	"github.com/feyxa/commerce/internal/service/models/orderitem"
)

// IOrderItemRepository stores the price-snapshotted lines of placed orders.
// BulkInsert runs inside the checkout unit of work; Query backs order reads.
type IOrderItemRepository interface {
	BulkInsert(ctx context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error)
	Query(ctx context.Context, filter *orderitem.QueryOrderItemsModel) ([]orderitem.OrderItem, error)
}
