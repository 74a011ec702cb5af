package order

import "github.com/google/uuid"

// QueryOrdersModel represents filter parameters for querying orders
type QueryOrdersModel struct {
	IDs      []uuid.UUID `json:"ids,omitempty"`
	StoreIDs []uuid.UUID `json:"store_ids,omitempty"`
	Statuses []Status    `json:"statuses,omitempty"`
	Limit    int         `json:"limit,omitempty"`
	Offset   int         `json:"offset,omitempty"`
}
