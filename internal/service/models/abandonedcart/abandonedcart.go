package abandonedcart

import (
	"errors"
	"time"

	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/feyxa/commerce/internal/service/models/currency"
	"github.com/google/uuid"
)

var (
	ErrCartNotFound = errors.New("abandoned cart not found")
	ErrTerminal     = errors.New("abandoned cart is already completed or recovered")
)

type Status string

const (
	StatusAbandoned Status = "abandoned"
	StatusCompleted Status = "completed"
	StatusRecovered Status = "recovered"
)

// IsTerminal reports whether the row may no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRecovered
}

// Contact is what the shopper has typed into the checkout form so far.
type Contact struct {
	Email string `json:"customer_email"`
	Phone string `json:"customer_phone"`
	Name  string `json:"customer_name"`
}

// Empty reports whether every contact field is blank.
func (c Contact) Empty() bool {
	return c.Email == "" && c.Phone == "" && c.Name == ""
}

// AbandonedCart is a per-store snapshot of a checkout that has not completed yet.
type AbandonedCart struct {
	ID           uuid.UUID         `json:"id"`
	StoreID      uuid.UUID         `json:"store_id"`
	SessionID    uuid.UUID         `json:"session_id"`
	Contact      Contact           `json:"contact"`
	Items        []cart.Item       `json:"cart_items"`
	Total        int64             `json:"cart_total"`
	Currency     currency.Currency `json:"currency"`
	Status       Status            `json:"status"`
	RecoveryCode string            `json:"recovery_code,omitempty"`
	RecoveredAt  *time.Time        `json:"recovered_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// FromGroup builds the snapshot written for one store group.
func FromGroup(sessionID uuid.UUID, group cart.StoreGroup, contact Contact) AbandonedCart {
	return AbandonedCart{
		StoreID:   group.StoreID,
		SessionID: sessionID,
		Contact:   contact,
		Items:     group.Items,
		Total:     group.Subtotal(),
		Currency:  group.Currency,
		Status:    StatusAbandoned,
	}
}

// QueryModel filters abandoned carts for the dashboard.
type QueryModel struct {
	StoreID  uuid.UUID `schema:"-"`
	Statuses []Status  `schema:"status"`
	Limit    int       `schema:"limit"`
	Offset   int       `schema:"offset"`
}

// Recovery is the outcome of a manual recovery.
type Recovery struct {
	Cart      AbandonedCart `json:"cart"`
	Code      string        `json:"recovery_code,omitempty"`
	EmailSent bool          `json:"email_sent"`
}
