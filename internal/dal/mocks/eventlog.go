package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/google/uuid"
)

// EventLog mirrors the Postgres event log, including claim and lease rules.
type EventLog struct {
	mu      sync.Mutex
	entries map[uuid.UUID]eventlog.Entry

	InsertErr error
}

func NewEventLog() *EventLog {
	return &EventLog{entries: make(map[uuid.UUID]eventlog.Entry)}
}

// Put seeds or overwrites a row.
func (l *EventLog) Put(e eventlog.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[e.ID] = e
}

func (l *EventLog) Get(id uuid.UUID) (eventlog.Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]

	return e, ok
}

// All returns every row ordered by creation time.
func (l *EventLog) All() []eventlog.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]eventlog.Entry, 0, len(l.entries))
	for _, e := range l.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })

	return result
}

func (l *EventLog) Insert(_ context.Context, e eventlog.Entry) (eventlog.Entry, error) {
	if l.InsertErr != nil {
		return eventlog.Entry{}, l.InsertErr
	}
	l.Put(e)

	return e, nil
}

func (l *EventLog) GetByID(_ context.Context, id uuid.UUID) (eventlog.Entry, error) {
	e, ok := l.Get(id)
	if !ok {
		return eventlog.Entry{}, eventlog.ErrEntryNotFound
	}

	return e, nil
}

func (l *EventLog) ResetStale(_ context.Context, now time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int64
	for id, e := range l.entries {
		if e.Status != eventlog.StatusPending && e.Status != eventlog.StatusProcessing {
			continue
		}
		if e.LeaseExpiresAt == nil || !e.LeaseExpiresAt.Before(now) {
			continue
		}
		e.Status = eventlog.StatusFailed
		e.ErrorMessage = "processing timed out"
		e.LeaseExpiresAt = nil
		e.UpdatedAt = now
		l.entries[id] = e
		n++
	}

	return n, nil
}

func (l *EventLog) ClaimDue(_ context.Context, now time.Time, limit int, lease time.Duration) (eventlog.Claim, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	due := make([]eventlog.Entry, 0)
	for _, e := range l.entries {
		if e.Status == eventlog.StatusFailed && !e.NextRetryAt.After(now) {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRetryAt.Before(due[j].NextRetryAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	var claim eventlog.Claim
	for _, e := range due {
		if e.Exhausted() {
			e.Status = eventlog.StatusMaxRetriesExceeded
			e.LeaseExpiresAt = nil
			claim.Exhausted = append(claim.Exhausted, e)
		} else {
			leaseUntil := now.Add(lease)
			e.RetryCount++
			e.NextRetryAt = now.Add(eventlog.Backoff(e.RetryCount))
			e.Status = eventlog.StatusPending
			e.LeaseExpiresAt = &leaseUntil
			claim.Leased = append(claim.Leased, e)
		}
		e.UpdatedAt = now
		l.entries[e.ID] = e
	}

	return claim, nil
}

func (l *EventLog) MarkProcessing(_ context.Context, id uuid.UUID, now time.Time, lease time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok {
		return false, nil
	}
	switch {
	case e.Status == eventlog.StatusPending:
	case e.Status == eventlog.StatusFailed && e.RetryCount < e.MaxRetries:
	default:
		return false, nil
	}
	leaseUntil := now.Add(lease)
	e.Status = eventlog.StatusProcessing
	e.LeaseExpiresAt = &leaseUntil
	e.UpdatedAt = now
	l.entries[id] = e

	return true, nil
}

func (l *EventLog) MarkProcessed(_ context.Context, id uuid.UUID, now time.Time) error {
	l.finish(id, func(e *eventlog.Entry) {
		e.Status = eventlog.StatusProcessed
		e.ErrorMessage = ""
		e.ProcessedAt = &now
		e.LeaseExpiresAt = nil
		e.UpdatedAt = now
	})

	return nil
}

func (l *EventLog) MarkFailed(_ context.Context, id uuid.UUID, reason string, now time.Time) error {
	l.finish(id, func(e *eventlog.Entry) {
		e.Status = eventlog.StatusFailed
		e.ErrorMessage = reason
		e.LeaseExpiresAt = nil
		e.UpdatedAt = now
	})

	return nil
}

func (l *EventLog) finish(id uuid.UUID, apply func(e *eventlog.Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok || e.Status.IsTerminal() {
		return
	}
	apply(&e)
	l.entries[id] = e
}
