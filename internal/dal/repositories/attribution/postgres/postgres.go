package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/feyxa/commerce/internal/dal/postgres"
	"github.com/feyxa/commerce/internal/service/models/attribution"
)

// AttributionRepository implements the order attribution repository for PostgreSQL.
type AttributionRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

func NewAttributionRepository(conn postgres.Conn) *AttributionRepository {
	return &AttributionRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *AttributionRepository) Insert(ctx context.Context, a attribution.Attribution) error {
	query, args, err := r.sb.Insert("order_attributions").
		Columns("id", "order_id", "store_id", "source", "medium", "campaign", "referrer", "created_at").
		Values(
			a.ID,
			a.OrderID,
			a.StoreID,
			a.Source.Source,
			a.Source.Medium,
			a.Source.Campaign,
			a.Source.Referrer,
			a.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert order attribution: %w", err)
	}

	return nil
}
