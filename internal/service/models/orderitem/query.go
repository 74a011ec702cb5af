package orderitem

import "github.com/google/uuid"

// QueryOrderItemsModel represents filter parameters for querying order items
type QueryOrderItemsModel struct {
	IDs        []uuid.UUID `json:"ids,omitempty"`
	OrderIDs   []uuid.UUID `json:"order_ids,omitempty"`
	ProductIDs []uuid.UUID `json:"product_ids,omitempty"`
}
