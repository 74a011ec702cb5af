package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/feyxa/commerce/internal/dal/interfaces/icustomerrepo"
	"github.com/feyxa/commerce/internal/dal/interfaces/iorderitemrepo"
	"github.com/feyxa/commerce/internal/dal/interfaces/iorderrepo"
	"github.com/feyxa/commerce/internal/dal/interfaces/iproductrepo"
	"github.com/feyxa/commerce/internal/dal/interfaces/iuow"
	"github.com/feyxa/commerce/internal/dal/postgres"
	customerrepo "github.com/feyxa/commerce/internal/dal/repositories/customer/postgres"
	orderrepo "github.com/feyxa/commerce/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/feyxa/commerce/internal/dal/repositories/orderitem/postgres"
	productrepo "github.com/feyxa/commerce/internal/dal/repositories/product/postgres"
	"github.com/jackc/pgx/v5"
)

type unitOfWork struct {
	db            postgres.TxConn
	tx            pgx.Tx
	stockGuard    iproductrepo.IStockGuard
	customerRepo  icustomerrepo.ICustomerRepository
	orderRepo     iorderrepo.IOrderRepository
	orderItemRepo iorderitemrepo.IOrderItemRepository
}

func (u *unitOfWork) StockGuard() iproductrepo.IStockGuard {
	return u.stockGuard
}

func (u *unitOfWork) CustomerRepository() icustomerrepo.ICustomerRepository {
	return u.customerRepo
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return u.orderItemRepo
}

// NewUnitOfWork returns a unit of work whose repositories run on db until Begin is called.
func NewUnitOfWork(db postgres.TxConn) *unitOfWork {
	u := &unitOfWork{db: db}
	u.bind(db)

	return u
}

// NewFactory builds units of work on the client's pool.
func NewFactory(client *postgres.Client) iuow.Factory {
	return func() iuow.UnitOfWork {
		return NewUnitOfWork(client.Pool())
	}
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return errors.New("unit of work already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.bind(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	defer u.reset()

	return u.tx.Commit(ctx)
}

// Rollback is a no-op after Commit.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	defer u.reset()

	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}

	return nil
}

func (u *unitOfWork) reset() {
	u.tx = nil
	u.bind(u.db)
}

func (u *unitOfWork) bind(conn postgres.Conn) {
	u.stockGuard = productrepo.NewStockGuard(conn)
	u.customerRepo = customerrepo.NewCustomerRepository(conn)
	u.orderRepo = orderrepo.NewOrderRepository(conn)
	u.orderItemRepo = orderitemrepo.NewOrderItemRepository(conn)
}
