package coupon

import (
	"crypto/rand"
	"io"
	"math/big"
	"time"

	"github.com/google/uuid"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

const (
	RecoveryPrefix   = "RECOVER-"
	RecoveryDiscount = 10

	recoveryCodeLength = 6
	// No 0/O or 1/I so codes survive being read aloud.
	recoveryAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

type Coupon struct {
	ID            uuid.UUID    `json:"id"`
	StoreID       uuid.UUID    `json:"store_id"`
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue int64        `json:"discount_value"`
	MaxUses       int          `json:"max_uses"`
	UsedCount     int          `json:"used_count"`
	IsActive      bool         `json:"is_active"`
	CreatedAt     time.Time    `json:"created_at"`
}

// NewRecoveryCode returns RECOVER- followed by six characters drawn from r.
func NewRecoveryCode(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	max := big.NewInt(int64(len(recoveryAlphabet)))
	code := make([]byte, recoveryCodeLength)
	for i := range code {
		n, err := rand.Int(r, max)
		if err != nil {
			return "", err
		}
		code[i] = recoveryAlphabet[n.Int64()]
	}

	return RecoveryPrefix + string(code), nil
}

// NewRecoveryCoupon is a one-use percentage coupon attached to a recovered cart.
func NewRecoveryCoupon(storeID uuid.UUID, code string, now time.Time) Coupon {
	return Coupon{
		ID:            uuid.New(),
		StoreID:       storeID,
		Code:          code,
		DiscountType:  DiscountPercentage,
		DiscountValue: RecoveryDiscount,
		MaxUses:       1,
		IsActive:      true,
		CreatedAt:     now,
	}
}
