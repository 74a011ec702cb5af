package cart

import (
	"errors"
	"fmt"
	"time"

	"github.com/feyxa/commerce/internal/service/models/currency"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrItemNotFound = errors.New("cart item not found")
	ErrInvalidItem  = errors.New("invalid cart item")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Item is a single cart line. Price is a snapshot in minor units.
type Item struct {
	ProductID uuid.UUID         `json:"product_id"           validate:"required"`
	Name      string            `json:"name"                 validate:"required"`
	Slug      string            `json:"slug,omitempty"`
	Price     int64             `json:"price"                validate:"gte=0"`
	Currency  currency.Currency `json:"currency"             validate:"required"`
	Quantity  int               `json:"quantity"             validate:"gt=0"`
	Image     string            `json:"image,omitempty"`
	StoreID   uuid.UUID         `json:"store_id"             validate:"required"`
	StoreName string            `json:"store_name"`
	StoreSlug string            `json:"store_slug,omitempty"`
	MaxStock  int               `json:"max_stock,omitempty"`
}

// Validate checks the line before it is stored.
func (i Item) Validate() error {
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	if _, err := currency.ParseCurrency(i.Currency.String()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}

	return nil
}

// LineTotal returns price × quantity.
func (i Item) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Cart is a server-held cart document.
type Cart struct {
	ID        string    `json:"id"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Add merges the item into the cart. Quantity is capped by MaxStock when it is known.
func (c *Cart) Add(item Item) {
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity = capQuantity(c.Items[i].Quantity+item.Quantity, item.MaxStock)
			if item.MaxStock > 0 {
				c.Items[i].MaxStock = item.MaxStock
			}

			return
		}
	}
	item.Quantity = capQuantity(item.Quantity, item.MaxStock)
	c.Items = append(c.Items, item)
}

// SetQuantity updates a line; a quantity of zero or less removes it.
// Reports whether the product was present.
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) bool {
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		if quantity <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)

			return true
		}
		c.Items[i].Quantity = capQuantity(quantity, c.Items[i].MaxStock)

		return true
	}

	return false
}

// Remove drops a product from the cart.
func (c *Cart) Remove(productID uuid.UUID) bool {
	return c.SetQuantity(productID, 0)
}

// ClearStore removes every line that belongs to the given store.
func (c *Cart) ClearStore(storeID uuid.UUID) {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.StoreID != storeID {
			kept = append(kept, item)
		}
	}
	c.Items = kept
}

// StoreGroup is the slice of a cart that becomes one order.
type StoreGroup struct {
	StoreID   uuid.UUID         `json:"store_id"`
	StoreName string            `json:"store_name"`
	Currency  currency.Currency `json:"currency"`
	Items     []Item            `json:"items"`
}

// Subtotal sums line totals of the group.
func (g StoreGroup) Subtotal() int64 {
	return Total(g.Items)
}

// GroupByStore splits items per store, keeping the order in which stores first appear.
func GroupByStore(items []Item) []StoreGroup {
	index := make(map[uuid.UUID]int)
	groups := make([]StoreGroup, 0)
	for _, item := range items {
		i, ok := index[item.StoreID]
		if !ok {
			i = len(groups)
			index[item.StoreID] = i
			groups = append(groups, StoreGroup{
				StoreID:   item.StoreID,
				StoreName: item.StoreName,
				Currency:  item.Currency,
			})
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	return groups
}

// Total sums line totals.
func Total(items []Item) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}

	return total
}

func capQuantity(quantity, maxStock int) int {
	if maxStock > 0 && quantity > maxStock {
		return maxStock
	}

	return quantity
}
