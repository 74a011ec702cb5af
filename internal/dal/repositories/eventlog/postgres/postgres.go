package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/feyxa/commerce/internal/dal/postgres"
	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const timedOutReason = "processing timed out"

var entryColumns = []string{
	"id",
	"event_type",
	"aggregate_type",
	"aggregate_id",
	"store_id",
	"payload",
	"status",
	"retry_count",
	"max_retries",
	"next_retry_at",
	"lease_expires_at",
	"error_message",
	"processed_at",
	"created_at",
	"updated_at",
}

// EventLogRepository implements the event log repository for PostgreSQL.
type EventLogRepository struct {
	conn postgres.TxConn
	sb   sq.StatementBuilderType
}

// NewEventLogRepository creates a new event log repository.
func NewEventLogRepository(conn postgres.TxConn) *EventLogRepository {
	return &EventLogRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert adds a new entry to the event log.
func (r *EventLogRepository) Insert(ctx context.Context, e eventlog.Entry) (eventlog.Entry, error) {
	query, args, err := r.sb.Insert("event_log").
		Columns(entryColumns...).
		Values(
			e.ID,
			e.EventType,
			e.AggregateType,
			e.AggregateID,
			e.StoreID,
			e.Payload,
			string(e.Status),
			e.RetryCount,
			e.MaxRetries,
			e.NextRetryAt,
			e.LeaseExpiresAt,
			e.ErrorMessage,
			e.ProcessedAt,
			e.CreatedAt,
			e.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return eventlog.Entry{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return eventlog.Entry{}, fmt.Errorf("failed to insert event log entry: %w", err)
	}

	return e, nil
}

// GetByID returns eventlog.ErrEntryNotFound when no row matches.
func (r *EventLogRepository) GetByID(ctx context.Context, id uuid.UUID) (eventlog.Entry, error) {
	query, args, err := r.sb.Select(entryColumns...).From("event_log").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return eventlog.Entry{}, fmt.Errorf("failed to build select query: %w", err)
	}

	e, err := scanEntry(r.conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return eventlog.Entry{}, eventlog.ErrEntryNotFound
	}
	if err != nil {
		return eventlog.Entry{}, fmt.Errorf("failed to get event log entry: %w", err)
	}

	return e, nil
}

// ResetStale fails rows whose lease ran out while pending or processing.
func (r *EventLogRepository) ResetStale(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := r.sb.Update("event_log").
		Set("status", string(eventlog.StatusFailed)).
		Set("error_message", timedOutReason).
		Set("lease_expires_at", nil).
		Set("updated_at", now).
		Where(sq.Eq{"status": []string{string(eventlog.StatusPending), string(eventlog.StatusProcessing)}}).
		Where(sq.Lt{"lease_expires_at": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reset stale events: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ClaimDue leases a batch of due failed rows inside one transaction. Rows locked by a
// concurrent sweep are skipped, so two sweeps never claim the same row.
func (r *EventLogRepository) ClaimDue(
	ctx context.Context,
	now time.Time,
	limit int,
	lease time.Duration,
) (eventlog.Claim, error) {
	var claim eventlog.Claim

	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return claim, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query, args, err := r.sb.Select(entryColumns...).
		From("event_log").
		Where(sq.Eq{"status": string(eventlog.StatusFailed)}).
		Where(sq.LtOrEq{"next_retry_at": now}).
		OrderBy("next_retry_at ASC").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return claim, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return claim, fmt.Errorf("failed to query due events: %w", err)
	}
	due, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (eventlog.Entry, error) {
		return scanEntry(row)
	})
	if err != nil {
		return claim, fmt.Errorf("failed to scan due events: %w", err)
	}

	for _, e := range due {
		if e.Exhausted() {
			e.Status = eventlog.StatusMaxRetriesExceeded
			e.LeaseExpiresAt = nil
		} else {
			leaseUntil := now.Add(lease)
			e.RetryCount++
			e.NextRetryAt = now.Add(eventlog.Backoff(e.RetryCount))
			e.Status = eventlog.StatusPending
			e.LeaseExpiresAt = &leaseUntil
		}
		e.UpdatedAt = now

		update, args, err := r.sb.Update("event_log").
			Set("status", string(e.Status)).
			Set("retry_count", e.RetryCount).
			Set("next_retry_at", e.NextRetryAt).
			Set("lease_expires_at", e.LeaseExpiresAt).
			Set("updated_at", e.UpdatedAt).
			Where(sq.Eq{"id": e.ID}).
			ToSql()
		if err != nil {
			return eventlog.Claim{}, fmt.Errorf("failed to build update query: %w", err)
		}
		if _, err := tx.Exec(ctx, update, args...); err != nil {
			return eventlog.Claim{}, fmt.Errorf("failed to update event %s: %w", e.ID, err)
		}

		if e.Status == eventlog.StatusMaxRetriesExceeded {
			claim.Exhausted = append(claim.Exhausted, e)
		} else {
			claim.Leased = append(claim.Leased, e)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eventlog.Claim{}, fmt.Errorf("failed to commit claim transaction: %w", err)
	}

	return claim, nil
}

// MarkProcessing leases a row for the consumer. Only pending rows and failed rows with
// retries left can be taken.
func (r *EventLogRepository) MarkProcessing(
	ctx context.Context,
	id uuid.UUID,
	now time.Time,
	lease time.Duration,
) (bool, error) {
	query, args, err := r.sb.Update("event_log").
		Set("status", string(eventlog.StatusProcessing)).
		Set("lease_expires_at", now.Add(lease)).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}).
		Where(sq.Or{
			sq.Eq{"status": string(eventlog.StatusPending)},
			sq.And{
				sq.Eq{"status": string(eventlog.StatusFailed)},
				sq.Expr("retry_count < max_retries"),
			},
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to mark event processing: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkProcessed records success.
func (r *EventLogRepository) MarkProcessed(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.finish(ctx, id, r.sb.Update("event_log").
		Set("status", string(eventlog.StatusProcessed)).
		Set("error_message", "").
		Set("processed_at", now).
		Set("lease_expires_at", nil).
		Set("updated_at", now))
}

// MarkFailed records the failure reason; the sweep decides when to retry.
func (r *EventLogRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, now time.Time) error {
	return r.finish(ctx, id, r.sb.Update("event_log").
		Set("status", string(eventlog.StatusFailed)).
		Set("error_message", reason).
		Set("lease_expires_at", nil).
		Set("updated_at", now))
}

// finish never touches terminal rows.
func (r *EventLogRepository) finish(ctx context.Context, id uuid.UUID, update sq.UpdateBuilder) error {
	query, args, err := update.
		Where(sq.Eq{"id": id}).
		Where(sq.NotEq{"status": []string{
			string(eventlog.StatusProcessed),
			string(eventlog.StatusMaxRetriesExceeded),
		}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update event log entry: %w", err)
	}

	return nil
}

func scanEntry(row pgx.Row) (eventlog.Entry, error) {
	var (
		e      eventlog.Entry
		status string
	)
	err := row.Scan(
		&e.ID,
		&e.EventType,
		&e.AggregateType,
		&e.AggregateID,
		&e.StoreID,
		&e.Payload,
		&status,
		&e.RetryCount,
		&e.MaxRetries,
		&e.NextRetryAt,
		&e.LeaseExpiresAt,
		&e.ErrorMessage,
		&e.ProcessedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	e.Status = eventlog.Status(status)

	return e, err
}
