package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/feyxa/commerce/internal/service/models/abandonedcart"
	"github.com/google/uuid"
)

// AbandonedCarts keeps rows unique by (session_id, store_id).
type AbandonedCarts struct {
	mu   sync.Mutex
	rows map[uuid.UUID]abandonedcart.AbandonedCart

	UpsertCalls int
}

func NewAbandonedCarts() *AbandonedCarts {
	return &AbandonedCarts{rows: make(map[uuid.UUID]abandonedcart.AbandonedCart)}
}

func (r *AbandonedCarts) Put(c abandonedcart.AbandonedCart) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.ID] = c
}

// All returns rows ordered by store id for stable assertions.
func (r *AbandonedCarts) All() []abandonedcart.AbandonedCart {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]abandonedcart.AbandonedCart, 0, len(r.rows))
	for _, c := range r.rows {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StoreID.String() < result[j].StoreID.String() })

	return result
}

func (r *AbandonedCarts) Upsert(_ context.Context, c abandonedcart.AbandonedCart) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.UpsertCalls++
	for id, existing := range r.rows {
		if existing.SessionID != c.SessionID || existing.StoreID != c.StoreID {
			continue
		}
		if existing.Status.IsTerminal() {
			return false, nil
		}
		existing.Contact = mergeContact(existing.Contact, c.Contact)
		existing.Items = c.Items
		existing.Total = c.Total
		existing.UpdatedAt = c.UpdatedAt
		r.rows[id] = existing

		return true, nil
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Status = abandonedcart.StatusAbandoned
	r.rows[c.ID] = c

	return true, nil
}

func (r *AbandonedCarts) UpdateContact(
	_ context.Context,
	sessionID uuid.UUID,
	contact abandonedcart.Contact,
	now time.Time,
) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, c := range r.rows {
		if c.SessionID == sessionID && c.Status == abandonedcart.StatusAbandoned {
			c.Contact = contact
			c.UpdatedAt = now
			r.rows[id] = c
			n++
		}
	}

	return n, nil
}

func (r *AbandonedCarts) MarkCompleted(_ context.Context, sessionID uuid.UUID, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, c := range r.rows {
		if c.SessionID == sessionID && c.Status == abandonedcart.StatusAbandoned {
			c.Status = abandonedcart.StatusCompleted
			c.UpdatedAt = now
			r.rows[id] = c
			n++
		}
	}

	return n, nil
}

func (r *AbandonedCarts) MarkRecovered(
	_ context.Context,
	id uuid.UUID,
	code string,
	now time.Time,
) (abandonedcart.AbandonedCart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.rows[id]
	if !ok || c.Status != abandonedcart.StatusAbandoned {
		return abandonedcart.AbandonedCart{}, abandonedcart.ErrTerminal
	}
	c.Status = abandonedcart.StatusRecovered
	c.RecoveryCode = code
	c.RecoveredAt = &now
	c.UpdatedAt = now
	r.rows[id] = c

	return c, nil
}

func (r *AbandonedCarts) GetByID(_ context.Context, id uuid.UUID) (abandonedcart.AbandonedCart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.rows[id]
	if !ok {
		return abandonedcart.AbandonedCart{}, abandonedcart.ErrCartNotFound
	}

	return c, nil
}

func (r *AbandonedCarts) Query(_ context.Context, filter abandonedcart.QueryModel) ([]abandonedcart.AbandonedCart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]abandonedcart.AbandonedCart, 0)
	for _, c := range r.rows {
		if c.StoreID != filter.StoreID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsCartStatus(filter.Statuses, c.Status) {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	return result, nil
}

func mergeContact(old, fresh abandonedcart.Contact) abandonedcart.Contact {
	if fresh.Email != "" {
		old.Email = fresh.Email
	}
	if fresh.Phone != "" {
		old.Phone = fresh.Phone
	}
	if fresh.Name != "" {
		old.Name = fresh.Name
	}

	return old
}

func containsCartStatus(statuses []abandonedcart.Status, st abandonedcart.Status) bool {
	for _, candidate := range statuses {
		if candidate == st {
			return true
		}
	}

	return false
}
