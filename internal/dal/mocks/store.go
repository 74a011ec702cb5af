// Package mocks holds in-memory fakes of the data layer for service tests.
package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/feyxa/commerce/internal/dal/interfaces/icustomerrepo"
	"github.com/feyxa/commerce/internal/dal/interfaces/iorderitemrepo"
	"github.com/feyxa/commerce/internal/dal/interfaces/iorderrepo"
	"github.com/feyxa/commerce/internal/dal/interfaces/iproductrepo"
	"github.com/feyxa/commerce/internal/dal/interfaces/iuow"
	"github.com/feyxa/commerce/internal/service/models/customer"
	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/feyxa/commerce/internal/service/models/orderitem"
	"github.com/google/uuid"
)

var ErrTxNotStarted = errors.New("transaction not started")

// Store is an in-memory stand-in for the orders database.
type Store struct {
	mu        sync.Mutex
	stock     map[uuid.UUID]int
	customers map[uuid.UUID]customer.Customer
	orders    map[uuid.UUID]order.Order
	items     []orderitem.OrderItem
	seq       map[uuid.UUID]int

	// OrderInsertErr fails order inserts for the given store.
	OrderInsertErr map[uuid.UUID]error
	// DecrementCalls counts stock guard invocations per product.
	DecrementCalls map[uuid.UUID]int
	Commits        int
	Rollbacks      int
}

func NewStore() *Store {
	return &Store{
		stock:          make(map[uuid.UUID]int),
		customers:      make(map[uuid.UUID]customer.Customer),
		orders:         make(map[uuid.UUID]order.Order),
		seq:            make(map[uuid.UUID]int),
		OrderInsertErr: make(map[uuid.UUID]error),
		DecrementCalls: make(map[uuid.UUID]int),
	}
}

func (s *Store) SetStock(productID uuid.UUID, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[productID] = quantity
}

func (s *Store) Stock(productID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stock[productID]
}

// Orders returns committed orders in insertion order, items attached.
func (s *Store) Orders() []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		o.Items = s.itemsOf(o.ID)
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool { return s.seq[result[i].ID] < s.seq[result[j].ID] })

	return result
}

func (s *Store) Customers() []customer.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]customer.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		result = append(result, c)
	}

	return result
}

// PutOrder seeds a committed order.
func (s *Store) PutOrder(o order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putOrder(o)
	s.items = append(s.items, o.Items...)
}

func (s *Store) putOrder(o order.Order) {
	if _, ok := s.seq[o.ID]; !ok {
		s.seq[o.ID] = len(s.seq)
	}
	o.Items = nil
	s.orders[o.ID] = o
}

func (s *Store) itemsOf(orderID uuid.UUID) []orderitem.OrderItem {
	var result []orderitem.OrderItem
	for _, it := range s.items {
		if it.OrderID == orderID {
			result = append(result, it)
		}
	}

	return result
}

// UnitOfWorkFactory returns units of work bound to the store.
func (s *Store) UnitOfWorkFactory() iuow.Factory {
	return func() iuow.UnitOfWork {
		return &UnitOfWork{store: s}
	}
}

// OrderRepository works outside any transaction.
func (s *Store) OrderRepository() iorderrepo.IOrderRepository {
	return &orderRepo{u: &UnitOfWork{store: s}}
}

func (s *Store) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return &orderItemRepo{u: &UnitOfWork{store: s}}
}

// UnitOfWork stages writes and applies them on Commit. Stock decrements apply at once and are
// undone on Rollback, like row updates inside a real transaction.
type UnitOfWork struct {
	store     *Store
	active    bool
	stockUndo map[uuid.UUID]int
	customers []customer.Customer
	orders    []order.Order
	items     []orderitem.OrderItem
}

func (u *UnitOfWork) Begin(context.Context) error {
	u.active = true
	u.stockUndo = make(map[uuid.UUID]int)

	return nil
}

func (u *UnitOfWork) Commit(context.Context) error {
	if !u.active {
		return nil
	}
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range u.customers {
		s.customers[c.ID] = c
	}
	for _, o := range u.orders {
		s.putOrder(o)
	}
	s.items = append(s.items, u.items...)
	s.Commits++
	u.clear()

	return nil
}

func (u *UnitOfWork) Rollback(context.Context) error {
	if !u.active {
		return nil
	}
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, qty := range u.stockUndo {
		s.stock[id] += qty
	}
	s.Rollbacks++
	u.clear()

	return nil
}

func (u *UnitOfWork) clear() {
	u.active = false
	u.stockUndo = nil
	u.customers = nil
	u.orders = nil
	u.items = nil
}

func (u *UnitOfWork) StockGuard() iproductrepo.IStockGuard {
	return &stockGuard{u: u}
}

func (u *UnitOfWork) CustomerRepository() icustomerrepo.ICustomerRepository {
	return &customerRepo{u: u}
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return &orderRepo{u: u}
}

func (u *UnitOfWork) OrderItemRepository() iorderitemrepo.IOrderItemRepository {
	return &orderItemRepo{u: u}
}

type stockGuard struct {
	u *UnitOfWork
}

func (g *stockGuard) DecrementStock(_ context.Context, productID uuid.UUID, quantity int) (bool, error) {
	s := g.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.DecrementCalls[productID]++
	if quantity <= 0 || s.stock[productID] < quantity {
		return false, nil
	}
	s.stock[productID] -= quantity
	if g.u.active {
		g.u.stockUndo[productID] += quantity
	}

	return true, nil
}

type customerRepo struct {
	u *UnitOfWork
}

func (r *customerRepo) Upsert(_ context.Context, c customer.Customer) (customer.Customer, error) {
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.customers {
		if existing.StoreID == c.StoreID && existing.Phone == c.Phone {
			c.ID = existing.ID
			c.CreatedAt = existing.CreatedAt
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if r.u.active {
		r.u.customers = append(r.u.customers, c)
	} else {
		s.customers[c.ID] = c
	}

	return c, nil
}

type orderRepo struct {
	u *UnitOfWork
}

func (r *orderRepo) Insert(_ context.Context, o order.Order) (order.Order, error) {
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.OrderInsertErr[o.StoreID]; err != nil {
		return order.Order{}, err
	}
	if r.u.active {
		r.u.orders = append(r.u.orders, o)
	} else {
		s.putOrder(o)
	}

	return o, nil
}

func (r *orderRepo) Query(_ context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]order.Order, 0)
	for _, o := range s.orders {
		if len(filter.IDs) > 0 && !containsID(filter.IDs, o.ID) {
			continue
		}
		if len(filter.StoreIDs) > 0 && !containsID(filter.StoreIDs, o.StoreID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, o.Status) {
			continue
		}
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool { return s.seq[result[i].ID] > s.seq[result[j].ID] })

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []order.Order{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

func (r *orderRepo) GetByID(_ context.Context, id uuid.UUID) (order.Order, error) {
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, order.ErrOrderNotFound
	}

	return o, nil
}

func (r *orderRepo) GetByTrackingToken(_ context.Context, token string) (order.Order, error) {
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.TrackingToken == token {
			return o, nil
		}
	}

	return order.Order{}, order.ErrOrderNotFound
}

func (r *orderRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to order.Status, now time.Time) (bool, error) {
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = now
	s.orders[id] = o

	return true, nil
}

type orderItemRepo struct {
	u *UnitOfWork
}

func (r *orderItemRepo) BulkInsert(_ context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error) {
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.u.active {
		r.u.items = append(r.u.items, items...)
	} else {
		s.items = append(s.items, items...)
	}

	return items, nil
}

func (r *orderItemRepo) Query(_ context.Context, filter *orderitem.QueryOrderItemsModel) ([]orderitem.OrderItem, error) {
	s := r.u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]orderitem.OrderItem, 0)
	for _, it := range s.items {
		if len(filter.IDs) > 0 && !containsID(filter.IDs, it.ID) {
			continue
		}
		if len(filter.OrderIDs) > 0 && !containsID(filter.OrderIDs, it.OrderID) {
			continue
		}
		if len(filter.ProductIDs) > 0 && !containsID(filter.ProductIDs, it.ProductID) {
			continue
		}
		result = append(result, it)
	}

	return result, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}

	return false
}

func containsStatus(statuses []order.Status, st order.Status) bool {
	for _, candidate := range statuses {
		if candidate == st {
			return true
		}
	}

	return false
}
