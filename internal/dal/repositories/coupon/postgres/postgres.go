package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/feyxa/commerce/internal/dal/postgres"
	"github.com/feyxa/commerce/internal/service/models/coupon"
)

// CouponRepository implements the coupon repository for PostgreSQL.
type CouponRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

func NewCouponRepository(conn postgres.Conn) *CouponRepository {
	return &CouponRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *CouponRepository) Insert(ctx context.Context, c coupon.Coupon) error {
	query, args, err := r.sb.Insert("coupons").
		Columns(
			"id",
			"store_id",
			"code",
			"discount_type",
			"discount_value",
			"max_uses",
			"used_count",
			"is_active",
			"created_at",
		).
		Values(
			c.ID,
			c.StoreID,
			c.Code,
			string(c.DiscountType),
			c.DiscountValue,
			c.MaxUses,
			c.UsedCount,
			c.IsActive,
			c.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert coupon: %w", err)
	}

	return nil
}
