package icartstore

import (
	"context"

	"github.com/feyxa/commerce/internal/service/models/cart"
)

// ICartStore keeps server-side carts.
type ICartStore interface {
	// Get returns an empty cart with the given id when none is stored.
	Get(ctx context.Context, cartID string) (cart.Cart, error)
	Save(ctx context.Context, c cart.Cart) error
	Delete(ctx context.Context, cartID string) error
}
