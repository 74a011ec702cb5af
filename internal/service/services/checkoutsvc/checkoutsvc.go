package checkoutsvc

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/feyxa/commerce/internal/dal/interfaces/iattributionrepo"
	"github.com/feyxa/commerce/internal/dal/interfaces/iuow"
	"github.com/feyxa/commerce/internal/service/models/attribution"
	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/feyxa/commerce/internal/service/models/checkout"
	"github.com/feyxa/commerce/internal/service/models/customer"
	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/feyxa/commerce/internal/service/models/orderitem"
	"github.com/feyxa/commerce/internal/service/models/payment"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type cartStore interface {
	Get(ctx context.Context, cartID string) (cart.Cart, error)
	ClearStore(ctx context.Context, cartID string, storeID uuid.UUID) error
}

type publisher interface {
	Publish(ctx context.Context, eventType string, aggregateID, storeID uuid.UUID, payload any)
}

type sideEffects interface {
	Submit(ctx context.Context, name string, task func(ctx context.Context) error) bool
}

type paymentSessions interface {
	CreatePaymentSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error)
}

type checkoutSessions interface {
	Complete(ctx context.Context, sessionID uuid.UUID) error
}

// CheckoutService turns a multi-vendor cart into one order per store.
type CheckoutService struct {
	newUOW       iuow.Factory
	carts        cartStore
	events       publisher
	attributions iattributionrepo.IAttributionRepository
	sideEffects  sideEffects
	payments     paymentSessions
	sessions     checkoutSessions
	online       map[order.PaymentMethod]bool
	returnURL    string
	random       io.Reader
	now          func() time.Time
}

// option is a function that configures the CheckoutService.
type option func(*CheckoutService)

// MustNewCheckoutService creates a new CheckoutService.
func MustNewCheckoutService(opts ...option) *CheckoutService {
	s := &CheckoutService{
		online: map[order.PaymentMethod]bool{
			order.PaymentMethodStripe:  true,
			order.PaymentMethodFedaPay: true,
		},
		random: rand.Reader,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil || s.events == nil {
		panic("checkout service needs a unit of work factory and an event publisher")
	}

	return s
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWork(factory iuow.Factory) option {
	return func(s *CheckoutService) {
		s.newUOW = factory
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithCartStore(c cartStore) option {
	return func(s *CheckoutService) {
		s.carts = c
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithEvents(p publisher) option {
	return func(s *CheckoutService) {
		s.events = p
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithAttributionRepository(repo iattributionrepo.IAttributionRepository) option {
	return func(s *CheckoutService) {
		s.attributions = repo
	}
}

// WithSideEffects sets the queue for best-effort writes. Without it they run inline.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSideEffects(q sideEffects) option {
	return func(s *CheckoutService) {
		s.sideEffects = q
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithPayments(p paymentSessions) option {
	return func(s *CheckoutService) {
		s.payments = p
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithCheckoutSessions(c checkoutSessions) option {
	return func(s *CheckoutService) {
		s.sessions = c
	}
}

// WithOnlinePaymentMethods lists the methods that need a hosted payment session.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOnlinePaymentMethods(methods ...order.PaymentMethod) option {
	return func(s *CheckoutService) {
		s.online = make(map[order.PaymentMethod]bool, len(methods))
		for _, m := range methods {
			s.online[m] = true
		}
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithReturnURL(url string) option {
	return func(s *CheckoutService) {
		s.returnURL = url
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithRandom(r io.Reader) option {
	return func(s *CheckoutService) {
		s.random = r
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *CheckoutService) {
		s.now = now
	}
}

// Checkout places one order per store of the cart, one store at a time in the order the
// stores first appear. A leg that fails stops the checkout; legs committed before it stay
// committed and are reported in the result next to the failed and skipped ones.
func (s *CheckoutService) Checkout(ctx context.Context, req checkout.Request) (checkout.Result, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Checkout.Checkout")
	defer span.End()

	if err := req.ValidateCustomer(); err != nil {
		return checkout.Result{}, err
	}
	if err := req.ValidateDelivery(); err != nil {
		return checkout.Result{}, err
	}

	items, err := s.resolveItems(ctx, req)
	if err != nil {
		return checkout.Result{}, err
	}

	groups := cart.GroupByStore(items)
	span.SetAttributes(attribute.Int("checkout.stores", len(groups)))

	result := checkout.Result{
		Orders: make([]order.Order, 0, len(groups)),
		Legs:   make([]checkout.Leg, len(groups)),
	}
	for i, g := range groups {
		result.Legs[i] = checkout.Leg{StoreID: g.StoreID, StoreName: g.StoreName, Status: checkout.LegSkipped}
	}

	shipping := apportionShipping(req.ShippingFee, len(groups))

	for i, g := range groups {
		o, err := s.placeOrder(ctx, req, g, shipping)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "checkout leg failed")

			result.Legs[i].Error = err.Error()
			var stockErr *checkout.InsufficientStockError
			if errors.As(err, &stockErr) {
				result.Legs[i].Status = checkout.LegInsufficientStock
				slog.Warn("Checkout stopped on insufficient stock", "store_id", g.StoreID, "product_id", stockErr.ProductID)

				return result, err
			}

			result.Legs[i].Status = checkout.LegFailed
			slog.Error("Checkout leg failed", "store_id", g.StoreID, "error", err)

			return result, fmt.Errorf("%w: %w", checkout.ErrPersistence, err)
		}

		result.Orders = append(result.Orders, o)
		result.Legs[i].Status = checkout.LegCreated
		result.Legs[i].OrderID = &o.ID
		result.Legs[i].OrderNumber = o.OrderNumber
		result.Legs[i].TrackingToken = o.TrackingToken

		s.afterCommit(ctx, req, o)
	}

	s.requestPayment(ctx, req, &result)
	s.completeSession(ctx, req)

	return result, nil
}

func (s *CheckoutService) resolveItems(ctx context.Context, req checkout.Request) ([]cart.Item, error) {
	items := req.Items
	if req.CartID != "" {
		if s.carts == nil {
			return nil, checkout.ErrCartNotFound
		}
		c, err := s.carts.Get(ctx, req.CartID)
		if err != nil {
			return nil, fmt.Errorf("failed to load cart: %w", err)
		}
		items = c.Items
	}

	if len(items) == 0 {
		return nil, &checkout.ValidationError{Message: "your cart is empty"}
	}
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, &checkout.ValidationError{
				Message: "your cart contains an invalid item",
				Fields:  map[string]string{fmt.Sprintf("items[%d]", i): err.Error()},
			}
		}
	}

	return items, nil
}

// placeOrder reserves stock for every line and writes customer, order and items in one
// transaction. Stock taken by a leg that fails later is released by the rollback.
func (s *CheckoutService) placeOrder(
	ctx context.Context,
	req checkout.Request,
	g cart.StoreGroup,
	shipping int64,
) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Checkout.PlaceOrder")
	defer span.End()
	span.SetAttributes(attribute.String("store.id", g.StoreID.String()))

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, err
	}
	committed := false
	defer func() {
		if !committed {
			if err := work.Rollback(ctx); err != nil {
				slog.Error("Failed to roll back checkout leg", "store_id", g.StoreID, "error", err)
			}
		}
	}()

	for _, item := range g.Items {
		ok, err := work.StockGuard().DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return order.Order{}, err
		}
		if !ok {
			return order.Order{}, &checkout.InsufficientStockError{ProductID: item.ProductID, ProductName: item.Name}
		}
	}

	now := s.now().UTC()
	cust, err := work.CustomerRepository().Upsert(ctx, customer.Customer{
		ID:        uuid.New(),
		StoreID:   g.StoreID,
		FirstName: req.Customer.FirstName,
		LastName:  req.Customer.LastName,
		Email:     req.Customer.Email,
		Phone:     req.Customer.Phone,
		City:      req.Delivery.City,
		Address:   req.Customer.Address,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return order.Order{}, err
	}

	o, err := s.newOrder(req, g, cust, shipping, now)
	if err != nil {
		return order.Order{}, err
	}

	items := o.Items
	o, err = work.OrderRepository().Insert(ctx, o)
	if err != nil {
		return order.Order{}, err
	}
	o.Items, err = work.OrderItemRepository().BulkInsert(ctx, items)
	if err != nil {
		return order.Order{}, err
	}

	if err := work.Commit(ctx); err != nil {
		return order.Order{}, err
	}
	committed = true

	slog.Info("Order created", "order_id", o.ID, "order_number", o.OrderNumber, "store_id", o.StoreID, "total", o.Total)

	return o, nil
}

func (s *CheckoutService) newOrder(
	req checkout.Request,
	g cart.StoreGroup,
	cust customer.Customer,
	shipping int64,
	now time.Time,
) (order.Order, error) {
	number, err := newOrderNumber(now, s.random)
	if err != nil {
		return order.Order{}, err
	}
	token, err := newTrackingToken(s.random)
	if err != nil {
		return order.Order{}, err
	}

	o := order.Order{
		ID:            uuid.New(),
		StoreID:       g.StoreID,
		StoreName:     g.StoreName,
		OrderNumber:   number,
		CustomerID:    cust.ID,
		Subtotal:      g.Subtotal(),
		ShippingCost:  shipping,
		Currency:      g.Currency,
		Status:        order.StatusNew,
		PaymentStatus: req.PaymentMethod.InitialPaymentStatus(),
		PaymentMethod: req.PaymentMethod,
		TrackingToken: token,
		Shipping: order.Shipping{
			Name:           cust.FullName(),
			Phone:          req.Customer.Phone,
			Email:          req.Customer.Email,
			Address:        req.Customer.Address,
			City:           req.Delivery.City,
			Commune:        req.Delivery.Commune,
			Country:        req.Delivery.Country,
			DeliveryMethod: req.Delivery.Method,
			RelayPointID:   req.Delivery.RelayPointID,
		},
		Notes:             req.Notes,
		CheckoutSessionID: req.SessionID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	o.Total = o.Subtotal + o.ShippingCost

	o.Items = make([]orderitem.OrderItem, 0, len(g.Items))
	for _, item := range g.Items {
		o.Items = append(o.Items, orderitem.OrderItem{
			ID:          uuid.New(),
			OrderID:     o.ID,
			ProductID:   item.ProductID,
			ProductName: item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
			Total:       item.LineTotal(),
		})
	}

	return o, nil
}

// afterCommit runs the best-effort follow-ups of a committed leg. None of them can fail the checkout.
func (s *CheckoutService) afterCommit(ctx context.Context, req checkout.Request, o order.Order) {
	s.events.Publish(ctx, eventlog.EventOrderCreated, o.ID, o.StoreID, eventlog.NewOrderCreatedPayload(o))

	if s.attributions != nil && !req.Attribution.Empty() {
		a := attribution.Attribution{
			ID:        uuid.New(),
			OrderID:   o.ID,
			StoreID:   o.StoreID,
			Source:    req.Attribution,
			CreatedAt: o.CreatedAt,
		}
		s.submit(ctx, "attribution", func(ctx context.Context) error {
			return s.attributions.Insert(ctx, a)
		})
	}

	if req.CartID != "" && s.carts != nil {
		if err := s.carts.ClearStore(ctx, req.CartID, o.StoreID); err != nil {
			slog.Error("Failed to clear cart lines", "store_id", o.StoreID, "error", err)
		}
	}
}

func (s *CheckoutService) submit(ctx context.Context, name string, task func(ctx context.Context) error) {
	if s.sideEffects == nil {
		if err := task(ctx); err != nil {
			slog.Error("Side effect failed", "task", name, "error", err)
		}

		return
	}

	if !s.sideEffects.Submit(ctx, name, task) {
		slog.Warn("Side effect dropped", "task", name)
	}
}

// requestPayment opens one hosted payment for every order of the checkout. A failure is
// reported on the result; the orders stay placed and payable later.
func (s *CheckoutService) requestPayment(ctx context.Context, req checkout.Request, result *checkout.Result) {
	if s.payments == nil || !s.online[req.PaymentMethod] || len(result.Orders) == 0 {
		return
	}

	sessionReq := payment.SessionRequest{
		Method:        req.PaymentMethod,
		Currency:      result.Orders[0].Currency,
		CustomerEmail: req.Customer.Email,
		CustomerName:  result.Orders[0].Shipping.Name,
		CustomerPhone: req.Customer.Phone,
		ReturnURL:     s.returnURL,
	}
	for _, o := range result.Orders {
		if o.Currency != sessionReq.Currency {
			result.PaymentError = "orders in different currencies cannot be paid together"
			slog.Warn("Payment session skipped on mixed currencies", "orders", len(result.Orders))

			return
		}
		sessionReq.Amount += o.Total
		sessionReq.OrderIDs = append(sessionReq.OrderIDs, o.ID)
		sessionReq.OrderNumbers = append(sessionReq.OrderNumbers, o.OrderNumber)
	}

	session, err := s.payments.CreatePaymentSession(ctx, sessionReq)
	if err != nil {
		result.PaymentError = "payment could not be started, you can pay later from your order page"
		slog.Error("Failed to create payment session", "method", req.PaymentMethod, "amount", sessionReq.Amount, "error", err)

		return
	}

	result.PaymentURL = session.URL
}

func (s *CheckoutService) completeSession(ctx context.Context, req checkout.Request) {
	if s.sessions == nil || req.SessionID == nil {
		return
	}

	if err := s.sessions.Complete(ctx, *req.SessionID); err != nil {
		slog.Error("Failed to complete abandoned carts", "session_id", *req.SessionID, "error", err)
	}
}

// apportionShipping splits the fee evenly; the remainder of the integer division is dropped.
func apportionShipping(fee int64, stores int) int64 {
	if stores <= 0 || fee <= 0 {
		return 0
	}

	return fee / int64(stores)
}
