package ieventlogrepo

import (
	"context"
	"time"

	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/google/uuid"
)

// IEventLogRepository is the outbox of domain events.
type IEventLogRepository interface {
	Insert(ctx context.Context, entry eventlog.Entry) (eventlog.Entry, error)
	GetByID(ctx context.Context, id uuid.UUID) (eventlog.Entry, error)
	// ResetStale fails pending or processing rows whose lease expired before now.
	ResetStale(ctx context.Context, now time.Time) (int64, error)
	// ClaimDue locks up to limit failed rows due at now, oldest due first. Exhausted rows become
	// max_retries_exceeded; the others get their retry bookkeeping bumped and a lease until now+lease.
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) (eventlog.Claim, error)
	// MarkProcessing leases a pending or failed row for a consumer; false means someone else has it.
	MarkProcessing(ctx context.Context, id uuid.UUID, now time.Time, lease time.Duration) (bool, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, now time.Time) error
}
