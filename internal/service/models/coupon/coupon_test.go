package coupon

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^RECOVER-[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{6}$`)

func TestNewRecoveryCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := NewRecoveryCode(nil)
		require.NoError(t, err)
		assert.Regexp(t, codePattern, code)
	}
}

func TestNewRecoveryCode_ShortReader(t *testing.T) {
	_, err := NewRecoveryCode(bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestNewRecoveryCoupon(t *testing.T) {
	storeID := uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	c := NewRecoveryCoupon(storeID, "RECOVER-ABC234", now)

	assert.Equal(t, storeID, c.StoreID)
	assert.Equal(t, DiscountPercentage, c.DiscountType)
	assert.Equal(t, int64(10), c.DiscountValue)
	assert.Equal(t, 1, c.MaxUses)
	assert.Zero(t, c.UsedCount)
	assert.True(t, c.IsActive)
	assert.Equal(t, now, c.CreatedAt)
}
