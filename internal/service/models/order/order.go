package order

import (
	"errors"
	"time"

	"github.com/feyxa/commerce/internal/service/models/currency"
	"github.com/feyxa/commerce/internal/service/models/orderitem"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Status is the fulfilment lifecycle of an order.
type Status string

const (
	StatusNew       Status = "new"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusNew:       {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusNew, StatusConfirmed, StatusPreparing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	default:
		return "", ErrInvalidTransition
	}
}

type PaymentStatus string

const (
	PaymentStatusCOD      PaymentStatus = "cod"
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodStripe  PaymentMethod = "stripe"
	PaymentMethodFedaPay PaymentMethod = "fedapay"
)

// InitialPaymentStatus is cod for cash on delivery and pending for everything paid online.
func (m PaymentMethod) InitialPaymentStatus() PaymentStatus {
	if m == PaymentMethodCOD {
		return PaymentStatusCOD
	}

	return PaymentStatusPending
}

type DeliveryMethod string

const (
	DeliveryHome    DeliveryMethod = "home"
	DeliveryRelay   DeliveryMethod = "relay"
	DeliveryCollect DeliveryMethod = "collect"
)

// Shipping is the delivery snapshot stored on the order.
type Shipping struct {
	Name           string         `json:"shipping_name"`
	Phone          string         `json:"shipping_phone"`
	Email          string         `json:"shipping_email,omitempty"`
	Address        string         `json:"shipping_address,omitempty"`
	City           string         `json:"shipping_city,omitempty"`
	Commune        string         `json:"shipping_commune,omitempty"`
	Country        string         `json:"shipping_country,omitempty"`
	DeliveryMethod DeliveryMethod `json:"delivery_method"`
	RelayPointID   string         `json:"relay_point_id,omitempty"`
}

// Order is one vendor's share of a checkout.
type Order struct {
	ID                uuid.UUID             `json:"id"`
	StoreID           uuid.UUID             `json:"store_id"`
	StoreName         string                `json:"store_name"`
	OrderNumber       string                `json:"order_number"`
	CustomerID        uuid.UUID             `json:"customer_id"`
	Subtotal          int64                 `json:"subtotal"`
	ShippingCost      int64                 `json:"shipping_cost"`
	Total             int64                 `json:"total"`
	Currency          currency.Currency     `json:"currency"`
	Status            Status                `json:"status"`
	PaymentStatus     PaymentStatus         `json:"payment_status"`
	PaymentMethod     PaymentMethod         `json:"payment_method"`
	TrackingToken     string                `json:"-"`
	Shipping          Shipping              `json:"shipping"`
	Notes             string                `json:"notes,omitempty"`
	CheckoutSessionID *uuid.UUID            `json:"checkout_session_id,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	Items             []orderitem.OrderItem `json:"items"`
}
