package eventlog

import (
	"github.com/feyxa/commerce/internal/service/models/currency"
	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/google/uuid"
)

// OrderCreatedPayload is the payload of order.created.
type OrderCreatedPayload struct {
	OrderNumber   string              `json:"order_number"`
	TrackingToken string              `json:"tracking_token"`
	Total         int64               `json:"total"`
	Currency      currency.Currency   `json:"currency"`
	CustomerEmail string              `json:"customer_email"`
	CustomerName  string              `json:"customer_name"`
	StoreName     string              `json:"store_name"`
	PaymentMethod order.PaymentMethod `json:"payment_method"`
	Items         []OrderCreatedItem  `json:"items"`
}

type OrderCreatedItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Price     int64     `json:"price"`
}

// NewOrderCreatedPayload snapshots an order for the order.created event.
func NewOrderCreatedPayload(o order.Order) OrderCreatedPayload {
	items := make([]OrderCreatedItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderCreatedItem{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice,
		})
	}

	return OrderCreatedPayload{
		OrderNumber:   o.OrderNumber,
		TrackingToken: o.TrackingToken,
		Total:         o.Total,
		Currency:      o.Currency,
		CustomerEmail: o.Shipping.Email,
		CustomerName:  o.Shipping.Name,
		StoreName:     o.StoreName,
		PaymentMethod: o.PaymentMethod,
		Items:         items,
	}
}

// OrderStatusChangedPayload is the payload of order.status_changed.
type OrderStatusChangedPayload struct {
	OrderNumber string       `json:"order_number"`
	From        order.Status `json:"from"`
	To          order.Status `json:"to"`
}
