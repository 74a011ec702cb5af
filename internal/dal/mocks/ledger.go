package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/feyxa/commerce/internal/service/models/attribution"
	"github.com/feyxa/commerce/internal/service/models/coupon"
	"github.com/feyxa/commerce/internal/service/models/escrow"
	"github.com/google/uuid"
)

type Coupons struct {
	mu      sync.Mutex
	Coupons []coupon.Coupon
	Err     error
}

func (r *Coupons) Insert(_ context.Context, c coupon.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	r.Coupons = append(r.Coupons, c)

	return nil
}

type Attributions struct {
	mu           sync.Mutex
	Attributions []attribution.Attribution
	Err          error
}

func (r *Attributions) Insert(_ context.Context, a attribution.Attribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	r.Attributions = append(r.Attributions, a)

	return nil
}

// Escrow keeps one record per order.
type Escrow struct {
	mu      sync.Mutex
	records map[uuid.UUID]escrow.Record
}

func NewEscrow() *Escrow {
	return &Escrow{records: make(map[uuid.UUID]escrow.Record)}
}

func (r *Escrow) Get(orderID uuid.UUID) (escrow.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[orderID]

	return rec, ok
}

func (r *Escrow) Hold(_ context.Context, rec escrow.Record) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.OrderID]; ok {
		return false, nil
	}
	rec.Status = escrow.StatusHeld
	r.records[rec.OrderID] = rec

	return true, nil
}

func (r *Escrow) Transition(_ context.Context, orderID uuid.UUID, to escrow.Status, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[orderID]
	if !ok || rec.Status != escrow.StatusHeld {
		return false, nil
	}
	rec.Status = to
	rec.UpdatedAt = now
	if to == escrow.StatusReleased {
		rec.ReleasedAt = &now
	}
	r.records[orderID] = rec

	return true, nil
}

func (r *Escrow) ReleaseDue(_ context.Context, now time.Time, limit int) ([]escrow.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	released := make([]escrow.Record, 0)
	for id, rec := range r.records {
		if len(released) >= limit {
			break
		}
		if rec.Status != escrow.StatusHeld || rec.ReleaseAt.After(now) {
			continue
		}
		rec.Status = escrow.StatusReleased
		rec.ReleasedAt = &now
		rec.UpdatedAt = now
		r.records[id] = rec
		released = append(released, rec)
	}

	return released, nil
}

func (r *Escrow) GetByOrderID(_ context.Context, orderID uuid.UUID) (escrow.Record, error) {
	rec, ok := r.Get(orderID)
	if !ok {
		return escrow.Record{}, escrow.ErrRecordNotFound
	}

	return rec, nil
}
