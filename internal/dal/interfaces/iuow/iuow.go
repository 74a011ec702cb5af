package iuow

import (
	"context"

	"github.com/feyxa/commerce/internal/dal/interfaces/icustomerrepo"
	"github.com/feyxa/commerce/internal/dal/interfaces/iorderitemrepo"
	"github.com/feyxa/commerce/internal/dal/interfaces/iorderrepo"
	"github.com/feyxa/commerce/internal/dal/interfaces/iproductrepo"
)

// UnitOfWork groups the repositories written by one checkout leg in a single transaction.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	StockGuard() iproductrepo.IStockGuard
	CustomerRepository() icustomerrepo.ICustomerRepository
	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
}

// Factory returns a fresh, not yet started unit of work.
type Factory func() UnitOfWork
