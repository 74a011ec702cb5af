package escrowsvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/feyxa/commerce/internal/dal/interfaces/iescrowrepo"
	"github.com/feyxa/commerce/internal/service/models/escrow"
	"github.com/google/uuid"
)

const (
	defaultHoldPeriod     = 7 * 24 * time.Hour
	defaultCommissionRate = 0.05
	defaultBatchSize      = 100
)

// EscrowService holds a vendor's share of an order until the buyer confirms receipt or the
// hold period runs out.
type EscrowService struct {
	repo           iescrowrepo.IEscrowRepository
	holdPeriod     time.Duration
	commissionRate float64
	batchSize      int
	now            func() time.Time
}

// option is a function that configures the EscrowService.
type option func(*EscrowService)

// MustNewEscrowService creates a new EscrowService.
func MustNewEscrowService(opts ...option) *EscrowService {
	s := &EscrowService{
		holdPeriod:     defaultHoldPeriod,
		commissionRate: defaultCommissionRate,
		batchSize:      defaultBatchSize,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.repo == nil {
		panic("escrow service needs a repository")
	}

	return s
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithEscrowRepository(repo iescrowrepo.IEscrowRepository) option {
	return func(s *EscrowService) {
		s.repo = repo
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithHoldDays(days int) option {
	return func(s *EscrowService) {
		if days > 0 {
			s.holdPeriod = time.Duration(days) * 24 * time.Hour
		}
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithCommissionRate(rate float64) option {
	return func(s *EscrowService) {
		if rate >= 0 && rate < 1 {
			s.commissionRate = rate
		}
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithReleaseBatchSize(n int) option {
	return func(s *EscrowService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *EscrowService) {
		s.now = now
	}
}

// Hold creates the order's escrow record. Holding twice is a no-op that reports false.
func (s *EscrowService) Hold(ctx context.Context, orderID, storeID uuid.UUID, amount int64) (bool, error) {
	now := s.now().UTC()
	rec := escrow.Record{
		ID:               uuid.New(),
		OrderID:          orderID,
		StoreID:          storeID,
		Amount:           amount,
		CommissionAmount: escrow.Commission(amount, s.commissionRate),
		CommissionRate:   s.commissionRate,
		Status:           escrow.StatusHeld,
		ReleaseAt:        now.Add(s.holdPeriod),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := s.repo.Hold(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("failed to hold escrow for order %s: %w", orderID, err)
	}
	if created {
		slog.Info("Escrow held", "order_id", orderID, "amount", amount, "release_at", rec.ReleaseAt)
	}

	return created, nil
}

// ReleaseForOrder releases a held record early, on delivery or buyer confirmation.
func (s *EscrowService) ReleaseForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return s.transition(ctx, orderID, escrow.StatusReleased)
}

// RefundForOrder returns a held record to the buyer when the order is cancelled.
func (s *EscrowService) RefundForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return s.transition(ctx, orderID, escrow.StatusRefunded)
}

func (s *EscrowService) transition(ctx context.Context, orderID uuid.UUID, to escrow.Status) (bool, error) {
	moved, err := s.repo.Transition(ctx, orderID, to, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to move escrow for order %s to %s: %w", orderID, to, err)
	}
	if moved {
		slog.Info("Escrow updated", "order_id", orderID, "status", to)
	}

	return moved, nil
}

// ReleaseDue releases one batch of holds whose release date has passed.
func (s *EscrowService) ReleaseDue(ctx context.Context) ([]escrow.Record, error) {
	released, err := s.repo.ReleaseDue(ctx, s.now().UTC(), s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to release due escrow: %w", err)
	}
	if len(released) > 0 {
		slog.Info("Released due escrow", "count", len(released))
	}

	return released, nil
}

func (s *EscrowService) Get(ctx context.Context, orderID uuid.UUID) (escrow.Record, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}
