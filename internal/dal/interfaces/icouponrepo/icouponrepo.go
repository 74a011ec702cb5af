package icouponrepo

import (
	"context"

	"github.com/feyxa/commerce/internal/service/models/coupon"
)

type ICouponRepository interface {
	Insert(ctx context.Context, c coupon.Coupon) error
}
