package escrow

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrRecordNotFound = errors.New("escrow record not found")

type Status string

const (
	StatusHeld     Status = "held"
	StatusReleased Status = "released"
	StatusRefunded Status = "refunded"
	StatusDisputed Status = "disputed"
)

// Record holds a vendor's funds for one order until release.
type Record struct {
	ID               uuid.UUID  `json:"id"`
	OrderID          uuid.UUID  `json:"order_id"`
	StoreID          uuid.UUID  `json:"store_id"`
	Amount           int64      `json:"amount"`
	CommissionAmount int64      `json:"commission_amount"`
	CommissionRate   float64    `json:"commission_rate"`
	Status           Status     `json:"status"`
	ReleaseAt        time.Time  `json:"release_at"`
	ReleasedAt       *time.Time `json:"released_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Commission truncates amount × rate to a whole minor unit.
func Commission(amount int64, rate float64) int64 {
	return int64(float64(amount) * rate)
}
