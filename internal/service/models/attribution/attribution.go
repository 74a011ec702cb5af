package attribution

import (
	"time"

	"github.com/google/uuid"
)

// Source is the marketing context captured with a checkout.
type Source struct {
	Source   string `json:"utm_source,omitempty"`
	Medium   string `json:"utm_medium,omitempty"`
	Campaign string `json:"utm_campaign,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

func (s Source) Empty() bool {
	return s == Source{}
}

type Attribution struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	StoreID   uuid.UUID `json:"store_id"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}
