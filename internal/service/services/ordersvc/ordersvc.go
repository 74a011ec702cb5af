package ordersvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/feyxa/commerce/internal/dal/interfaces/iorderitemrepo"
	"github.com/feyxa/commerce/internal/dal/interfaces/iorderrepo"
	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/feyxa/commerce/internal/service/models/orderitem"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const maxPageSize = 100

type publisher interface {
	Publish(ctx context.Context, eventType string, aggregateID, storeID uuid.UUID, payload any)
}

// OrderService is a service for reading orders and moving them through their lifecycle.
type OrderService struct {
	orders iorderrepo.IOrderRepository
	items  iorderitemrepo.IOrderItemRepository
	events publisher
	now    func() time.Time
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.orders == nil || s.items == nil || s.events == nil {
		panic("order service needs order and item repositories and an event publisher")
	}

	return s
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(repo iorderrepo.IOrderRepository) option {
	return func(s *OrderService) {
		s.orders = repo
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderItemRepository(repo iorderitemrepo.IOrderItemRepository) option {
	return func(s *OrderService) {
		s.items = repo
	}
}

// WithEvents sets where order.status_changed is published.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithEvents(p publisher) option {
	return func(s *OrderService) {
		s.events = p
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *OrderService) {
		s.now = now
	}
}

// List retrieves orders with their items, newest first.
func (s *OrderService) List(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error) {
	if filter.Limit <= 0 || filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	orders, err := s.orders.Query(ctx, &filter)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []order.Order{}, nil
	}

	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// Track looks an order up by its public tracking token.
func (s *OrderService) Track(ctx context.Context, token string) (order.Order, error) {
	if token == "" {
		return order.Order{}, order.ErrOrderNotFound
	}

	o, err := s.orders.GetByTrackingToken(ctx, token)
	if err != nil {
		return order.Order{}, err
	}

	orders := []order.Order{o}
	if err := s.attachItems(ctx, orders); err != nil {
		return order.Order{}, err
	}

	return orders[0], nil
}

// UpdateStatus moves an order along its lifecycle and publishes order.status_changed.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, to order.Status) (order.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return order.Order{}, err
	}

	return s.transition(ctx, o, to)
}

// ConfirmReceipt is the buyer's side of delivery: a shipped order becomes delivered.
func (s *OrderService) ConfirmReceipt(ctx context.Context, token string) (order.Order, error) {
	o, err := s.Track(ctx, token)
	if err != nil {
		return order.Order{}, err
	}
	if o.Status != order.StatusShipped {
		return order.Order{}, fmt.Errorf("%w: order is %s", order.ErrInvalidTransition, o.Status)
	}

	return s.transition(ctx, o, order.StatusDelivered)
}

func (s *OrderService) transition(ctx context.Context, o order.Order, to order.Status) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Order.UpdateStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", o.ID.String()),
		attribute.String("order.status.from", string(o.Status)),
		attribute.String("order.status.to", string(to)),
	)

	if !o.Status.CanTransitionTo(to) {
		return order.Order{}, fmt.Errorf("%w: %s to %s", order.ErrInvalidTransition, o.Status, to)
	}

	now := s.now().UTC()
	moved, err := s.orders.UpdateStatus(ctx, o.ID, o.Status, to, now)
	if err != nil {
		return order.Order{}, err
	}
	if !moved {
		return order.Order{}, fmt.Errorf("%w: order %s changed concurrently", order.ErrInvalidTransition, o.ID)
	}

	from := o.Status
	o.Status = to
	o.UpdatedAt = now
	slog.Info("Order status updated", "order_id", o.ID, "from", from, "to", to)

	s.events.Publish(ctx, eventlog.EventOrderStatusChanged, o.ID, o.StoreID, eventlog.OrderStatusChangedPayload{
		OrderNumber: o.OrderNumber,
		From:        from,
		To:          to,
	})

	return o, nil
}

func (s *OrderService) attachItems(ctx context.Context, orders []order.Order) error {
	query := &orderitem.QueryOrderItemsModel{}
	for _, o := range orders {
		query.OrderIDs = append(query.OrderIDs, o.ID)
	}

	items, err := s.items.Query(ctx, query)
	if err != nil {
		return err
	}

	for i := range orders {
		orders[i].Items = make([]orderitem.OrderItem, 0)
		for _, item := range items {
			if item.OrderID == orders[i].ID {
				orders[i].Items = append(orders[i].Items, item)
			}
		}
	}

	return nil
}
