package orderitem

import (
	"github.com/google/uuid"
)

// OrderItem is an immutable snapshot of a cart line taken at order creation.
type OrderItem struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   int64     `json:"unit_price"`
	Total       int64     `json:"total"`
}
