package iproductrepo

import (
	"context"

	"github.com/google/uuid"
)

// IStockGuard is the only write path to product stock.
type IStockGuard interface {
	// DecrementStock atomically takes quantity units. It returns false, not an error, when stock is short.
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (bool, error)
}
