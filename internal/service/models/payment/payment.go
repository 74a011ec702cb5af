package payment

import (
	"github.com/feyxa/commerce/internal/service/models/currency"
	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/google/uuid"
)

// SessionRequest asks the payment function for a hosted checkout covering several orders.
type SessionRequest struct {
	Method        order.PaymentMethod `json:"payment_method"`
	Amount        int64               `json:"amount"`
	Currency      currency.Currency   `json:"currency"`
	OrderIDs      []uuid.UUID         `json:"order_ids"`
	OrderNumbers  []string            `json:"order_numbers"`
	CustomerEmail string              `json:"customer_email,omitempty"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone"`
	ReturnURL     string              `json:"return_url"`
}

type Session struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}
