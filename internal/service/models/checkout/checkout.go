package checkout

import (
	"github.com/feyxa/commerce/internal/service/models/attribution"
	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/google/uuid"
)

// CustomerForm is what the shopper fills in on the checkout page.
type CustomerForm struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name"  validate:"max=100"`
	Email     string `json:"email"      validate:"omitempty,email,max=255"`
	Phone     string `json:"phone"      validate:"required,min=8,max=20"`
	Address   string `json:"address"    validate:"max=500"`
}

// Delivery is the shipping selection. A home delivery needs a resolved city and a
// relay delivery needs a resolved relay point.
type Delivery struct {
	Method       order.DeliveryMethod `json:"method"         validate:"required,oneof=home relay collect"`
	City         string               `json:"city"           validate:"required_if=Method home,max=100"`
	Commune      string               `json:"commune"        validate:"max=100"`
	Country      string               `json:"country"        validate:"max=100"`
	RelayPointID string               `json:"relay_point_id" validate:"required_if=Method relay,max=100"`
}

// Request is a checkout submission. The cart is either referenced by CartID or sent inline.
type Request struct {
	Customer      CustomerForm        `json:"customer"       validate:"-"`
	Delivery      Delivery            `json:"delivery"       validate:"-"`
	PaymentMethod order.PaymentMethod `json:"payment_method" validate:"required,oneof=cod stripe fedapay"`
	CartID        string              `json:"cart_id,omitempty"`
	Items         []cart.Item         `json:"items,omitempty" validate:"omitempty,dive"`
	ShippingFee   int64               `json:"shipping_fee"   validate:"gte=0"`
	Notes         string              `json:"notes"          validate:"max=1000"`
	SessionID     *uuid.UUID          `json:"session_id,omitempty"`
	Attribution   attribution.Source  `json:"attribution"`
}

type LegStatus string

const (
	LegCreated           LegStatus = "created"
	LegInsufficientStock LegStatus = "insufficient_stock"
	LegFailed            LegStatus = "failed"
	LegSkipped           LegStatus = "skipped"
)

// Leg is the outcome of one store's sub-transaction. A created leg carries the order's
// tracking token, which no other response exposes.
type Leg struct {
	StoreID       uuid.UUID  `json:"store_id"`
	StoreName     string     `json:"store_name"`
	Status        LegStatus  `json:"status"`
	OrderID       *uuid.UUID `json:"order_id,omitempty"`
	OrderNumber   string     `json:"order_number,omitempty"`
	TrackingToken string     `json:"tracking_token,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Result lists every store leg of a checkout, including the ones that did not run.
type Result struct {
	Orders       []order.Order `json:"orders"`
	Legs         []Leg         `json:"legs"`
	PaymentURL   string        `json:"payment_url,omitempty"`
	PaymentError string        `json:"payment_error,omitempty"`
}

// Partial reports whether some legs committed while others did not.
func (r Result) Partial() bool {
	created := 0
	for _, leg := range r.Legs {
		if leg.Status == LegCreated {
			created++
		}
	}

	return created > 0 && created < len(r.Legs)
}

// ClearedStores lists the stores whose cart lines were turned into orders.
func (r Result) ClearedStores() []uuid.UUID {
	stores := make([]uuid.UUID, 0, len(r.Orders))
	for _, o := range r.Orders {
		stores = append(stores, o.StoreID)
	}

	return stores
}
