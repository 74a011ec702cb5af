package postgresrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/feyxa/commerce/internal/dal/postgres"
	"github.com/feyxa/commerce/internal/service/models/abandonedcart"
	"github.com/feyxa/commerce/internal/service/models/currency"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var cartColumns = []string{
	"id",
	"store_id",
	"session_id",
	"customer_email",
	"customer_phone",
	"customer_name",
	"cart_items",
	"cart_total",
	"currency",
	"status",
	"recovery_code",
	"recovered_at",
	"created_at",
	"updated_at",
}

// AbandonedCartRepository implements the abandoned cart repository for PostgreSQL.
type AbandonedCartRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

func NewAbandonedCartRepository(conn postgres.Conn) *AbandonedCartRepository {
	return &AbandonedCartRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Upsert refreshes the snapshot of a session's store group. The WHERE on the conflict branch
// keeps completed and recovered rows untouched.
func (r *AbandonedCartRepository) Upsert(ctx context.Context, c abandonedcart.AbandonedCart) (bool, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	items, err := json.Marshal(c.Items)
	if err != nil {
		return false, fmt.Errorf("failed to marshal cart items: %w", err)
	}

	query, args, err := r.sb.Insert("abandoned_carts").
		Columns(
			"id",
			"store_id",
			"session_id",
			"customer_email",
			"customer_phone",
			"customer_name",
			"cart_items",
			"cart_total",
			"currency",
			"status",
			"created_at",
			"updated_at",
		).
		Values(
			c.ID,
			c.StoreID,
			c.SessionID,
			c.Contact.Email,
			c.Contact.Phone,
			c.Contact.Name,
			items,
			c.Total,
			c.Currency.String(),
			string(abandonedcart.StatusAbandoned),
			c.CreatedAt,
			c.UpdatedAt,
		).
		Suffix(`ON CONFLICT (session_id, store_id) DO UPDATE SET
			customer_email = COALESCE(NULLIF(EXCLUDED.customer_email, ''), abandoned_carts.customer_email),
			customer_phone = COALESCE(NULLIF(EXCLUDED.customer_phone, ''), abandoned_carts.customer_phone),
			customer_name = COALESCE(NULLIF(EXCLUDED.customer_name, ''), abandoned_carts.customer_name),
			cart_items = EXCLUDED.cart_items,
			cart_total = EXCLUDED.cart_total,
			updated_at = EXCLUDED.updated_at
		WHERE abandoned_carts.status = 'abandoned'`).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build upsert query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to upsert abandoned cart: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// UpdateContact patches contact fields on the session's rows that are still abandoned.
func (r *AbandonedCartRepository) UpdateContact(
	ctx context.Context,
	sessionID uuid.UUID,
	contact abandonedcart.Contact,
	now time.Time,
) (int64, error) {
	query, args, err := r.sb.Update("abandoned_carts").
		Set("customer_email", contact.Email).
		Set("customer_phone", contact.Phone).
		Set("customer_name", contact.Name).
		Set("updated_at", now).
		Where(sq.Eq{"session_id": sessionID, "status": string(abandonedcart.StatusAbandoned)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update abandoned cart contact: %w", err)
	}

	return tag.RowsAffected(), nil
}

// MarkCompleted flips every abandoned row of the session to completed.
func (r *AbandonedCartRepository) MarkCompleted(ctx context.Context, sessionID uuid.UUID, now time.Time) (int64, error) {
	query, args, err := r.sb.Update("abandoned_carts").
		Set("status", string(abandonedcart.StatusCompleted)).
		Set("updated_at", now).
		Where(sq.Eq{"session_id": sessionID, "status": string(abandonedcart.StatusAbandoned)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to complete abandoned carts: %w", err)
	}

	return tag.RowsAffected(), nil
}

// MarkRecovered flips one abandoned row to recovered.
func (r *AbandonedCartRepository) MarkRecovered(
	ctx context.Context,
	id uuid.UUID,
	code string,
	now time.Time,
) (abandonedcart.AbandonedCart, error) {
	query, args, err := r.sb.Update("abandoned_carts").
		Set("status", string(abandonedcart.StatusRecovered)).
		Set("recovery_code", code).
		Set("recovered_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": id, "status": string(abandonedcart.StatusAbandoned)}).
		Suffix("RETURNING " + strings.Join(cartColumns, ", ")).
		ToSql()
	if err != nil {
		return abandonedcart.AbandonedCart{}, fmt.Errorf("failed to build update query: %w", err)
	}

	c, err := scanCart(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return abandonedcart.AbandonedCart{}, abandonedcart.ErrTerminal
	}
	if err != nil {
		return abandonedcart.AbandonedCart{}, fmt.Errorf("failed to recover abandoned cart: %w", err)
	}

	return c, nil
}

func (r *AbandonedCartRepository) GetByID(ctx context.Context, id uuid.UUID) (abandonedcart.AbandonedCart, error) {
	query, args, err := r.sb.Select(cartColumns...).From("abandoned_carts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return abandonedcart.AbandonedCart{}, fmt.Errorf("failed to build select query: %w", err)
	}

	c, err := scanCart(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return abandonedcart.AbandonedCart{}, abandonedcart.ErrCartNotFound
	}
	if err != nil {
		return abandonedcart.AbandonedCart{}, fmt.Errorf("failed to get abandoned cart: %w", err)
	}

	return c, nil
}

// Query lists a store's carts, newest first.
func (r *AbandonedCartRepository) Query(
	ctx context.Context,
	filter abandonedcart.QueryModel,
) ([]abandonedcart.AbandonedCart, error) {
	query := r.sb.Select(cartColumns...).
		From("abandoned_carts").
		Where(sq.Eq{"store_id": filter.StoreID}).
		OrderBy("created_at DESC")

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query = query.Where(sq.Eq{"status": statuses})
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query abandoned carts: %w", err)
	}

	carts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (abandonedcart.AbandonedCart, error) {
		return scanCart(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan abandoned carts: %w", err)
	}

	return carts, nil
}

func scanCart(row pgx.Row) (abandonedcart.AbandonedCart, error) {
	var (
		c      abandonedcart.AbandonedCart
		items  []byte
		cur    string
		status string
	)
	err := row.Scan(
		&c.ID,
		&c.StoreID,
		&c.SessionID,
		&c.Contact.Email,
		&c.Contact.Phone,
		&c.Contact.Name,
		&items,
		&c.Total,
		&cur,
		&status,
		&c.RecoveryCode,
		&c.RecoveredAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return abandonedcart.AbandonedCart{}, err
	}

	if err := json.Unmarshal(items, &c.Items); err != nil {
		return abandonedcart.AbandonedCart{}, fmt.Errorf("failed to unmarshal cart items: %w", err)
	}
	c.Currency = currency.Currency(cur)
	c.Status = abandonedcart.Status(status)

	return c, nil
}
