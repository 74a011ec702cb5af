package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/feyxa/commerce/internal/dal/postgres"
	"github.com/feyxa/commerce/internal/service/models/escrow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var recordColumns = []string{
	"id",
	"order_id",
	"store_id",
	"amount",
	"commission_amount",
	"commission_rate",
	"status",
	"release_at",
	"released_at",
	"created_at",
	"updated_at",
}

// EscrowRepository implements the escrow repository for PostgreSQL.
type EscrowRepository struct {
	conn postgres.Conn
	sb   sq.StatementBuilderType
}

func NewEscrowRepository(conn postgres.Conn) *EscrowRepository {
	return &EscrowRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Hold is idempotent per order.
func (r *EscrowRepository) Hold(ctx context.Context, rec escrow.Record) (bool, error) {
	query, args, err := r.sb.Insert("escrow_records").
		Columns(recordColumns...).
		Values(
			rec.ID,
			rec.OrderID,
			rec.StoreID,
			rec.Amount,
			rec.CommissionAmount,
			rec.CommissionRate,
			string(escrow.StatusHeld),
			rec.ReleaseAt,
			nil,
			rec.CreatedAt,
			rec.UpdatedAt,
		).
		Suffix("ON CONFLICT (order_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build insert query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to hold escrow: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Transition only moves held records.
func (r *EscrowRepository) Transition(
	ctx context.Context,
	orderID uuid.UUID,
	to escrow.Status,
	now time.Time,
) (bool, error) {
	update := r.sb.Update("escrow_records").
		Set("status", string(to)).
		Set("updated_at", now).
		Where(sq.Eq{"order_id": orderID, "status": string(escrow.StatusHeld)})
	if to == escrow.StatusReleased {
		update = update.Set("released_at", now)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update escrow: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ReleaseDue releases held records past their release date and returns them.
func (r *EscrowRepository) ReleaseDue(ctx context.Context, now time.Time, limit int) ([]escrow.Record, error) {
	due := r.sb.Select("id").
		From("escrow_records").
		Where(sq.Eq{"status": string(escrow.StatusHeld)}).
		Where(sq.LtOrEq{"release_at": now}).
		OrderBy("release_at ASC").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED")

	dueSQL, dueArgs, err := due.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	query, args, err := r.sb.Update("escrow_records").
		Set("status", string(escrow.StatusReleased)).
		Set("released_at", now).
		Set("updated_at", now).
		Where(sq.Expr("id IN ("+dueSQL+")", dueArgs...)).
		Suffix("RETURNING " + strings.Join(recordColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to release due escrow: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (escrow.Record, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan escrow records: %w", err)
	}

	return records, nil
}

func (r *EscrowRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (escrow.Record, error) {
	query, args, err := r.sb.Select(recordColumns...).
		From("escrow_records").
		Where(sq.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return escrow.Record{}, fmt.Errorf("failed to build select query: %w", err)
	}

	rec, err := scanRecord(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return escrow.Record{}, escrow.ErrRecordNotFound
	}
	if err != nil {
		return escrow.Record{}, fmt.Errorf("failed to get escrow record: %w", err)
	}

	return rec, nil
}

func scanRecord(row pgx.Row) (escrow.Record, error) {
	var (
		rec    escrow.Record
		status string
	)
	err := row.Scan(
		&rec.ID,
		&rec.OrderID,
		&rec.StoreID,
		&rec.Amount,
		&rec.CommissionAmount,
		&rec.CommissionRate,
		&status,
		&rec.ReleaseAt,
		&rec.ReleasedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	rec.Status = escrow.Status(status)

	return rec, err
}
