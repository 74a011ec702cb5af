package cartsvc

import (
	"context"
	"fmt"

	"github.com/feyxa/commerce/internal/dal/interfaces/icartstore"
	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/google/uuid"
)

// CartService keeps shopper carts on the server.
type CartService struct {
	store icartstore.ICartStore
}

// option is a function that configures the CartService.
type option func(*CartService)

// MustNewCartService creates a new CartService.
func MustNewCartService(opts ...option) *CartService {
	s := &CartService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		panic("cart service needs a cart store")
	}

	return s
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithCartStore(store icartstore.ICartStore) option {
	return func(s *CartService) {
		s.store = store
	}
}

func (s *CartService) Get(ctx context.Context, cartID string) (cart.Cart, error) {
	return s.store.Get(ctx, cartID)
}

// AddItem merges the item into the cart, capping the quantity at the known stock.
func (s *CartService) AddItem(ctx context.Context, cartID string, item cart.Item) (cart.Cart, error) {
	if err := item.Validate(); err != nil {
		return cart.Cart{}, err
	}

	return s.update(ctx, cartID, func(c *cart.Cart) error {
		c.Add(item)

		return nil
	})
}

// SetQuantity updates one line; zero or less removes it.
func (s *CartService) SetQuantity(ctx context.Context, cartID string, productID uuid.UUID, quantity int) (cart.Cart, error) {
	return s.update(ctx, cartID, func(c *cart.Cart) error {
		if !c.SetQuantity(productID, quantity) {
			return cart.ErrItemNotFound
		}

		return nil
	})
}

func (s *CartService) RemoveItem(ctx context.Context, cartID string, productID uuid.UUID) (cart.Cart, error) {
	return s.update(ctx, cartID, func(c *cart.Cart) error {
		if !c.Remove(productID) {
			return cart.ErrItemNotFound
		}

		return nil
	})
}

// ClearStore drops the lines of one store, leaving the rest of the cart untouched.
func (s *CartService) ClearStore(ctx context.Context, cartID string, storeID uuid.UUID) error {
	_, err := s.update(ctx, cartID, func(c *cart.Cart) error {
		c.ClearStore(storeID)

		return nil
	})

	return err
}

func (s *CartService) update(ctx context.Context, cartID string, apply func(c *cart.Cart) error) (cart.Cart, error) {
	c, err := s.store.Get(ctx, cartID)
	if err != nil {
		return cart.Cart{}, fmt.Errorf("failed to load cart: %w", err)
	}

	if err := apply(&c); err != nil {
		return cart.Cart{}, err
	}

	if len(c.Items) == 0 {
		if err := s.store.Delete(ctx, cartID); err != nil {
			return cart.Cart{}, fmt.Errorf("failed to delete cart: %w", err)
		}

		return c, nil
	}

	if err := s.store.Save(ctx, c); err != nil {
		return cart.Cart{}, fmt.Errorf("failed to save cart: %w", err)
	}

	return c, nil
}
