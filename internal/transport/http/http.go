package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/feyxa/commerce/internal/service/models/abandonedcart"
	"github.com/feyxa/commerce/internal/service/models/cart"
	"github.com/feyxa/commerce/internal/service/models/checkout"
	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/feyxa/commerce/internal/service/services/cartrecorder"
	"github.com/feyxa/commerce/internal/service/services/dispatchsvc"
	abandonedcarts "github.com/feyxa/commerce/internal/transport/http/abandoned_carts"
	cartitems "github.com/feyxa/commerce/internal/transport/http/cart_items"
	checkoutsession "github.com/feyxa/commerce/internal/transport/http/checkout_session"
	listorders "github.com/feyxa/commerce/internal/transport/http/list_orders"
	placecheckout "github.com/feyxa/commerce/internal/transport/http/place_checkout"
	processevent "github.com/feyxa/commerce/internal/transport/http/process_event"
	"github.com/feyxa/commerce/internal/transport/http/respond"
	sweepevents "github.com/feyxa/commerce/internal/transport/http/sweep_events"
	trackorder "github.com/feyxa/commerce/internal/transport/http/track_order"
	updateorderstatus "github.com/feyxa/commerce/internal/transport/http/update_order_status"
	"github.com/feyxa/commerce/pkg/http/middleware/trace"
	"github.com/feyxa/commerce/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const healthTimeout = 2 * time.Second

type checkoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (checkout.Result, error)
}

type sessionManager interface {
	Start(items []cart.Item, contact abandonedcart.Contact) *cartrecorder.Session
	Get(id uuid.UUID) (*cartrecorder.Session, error)
}

type cartService interface {
	Get(ctx context.Context, cartID string) (cart.Cart, error)
	AddItem(ctx context.Context, cartID string, item cart.Item) (cart.Cart, error)
	SetQuantity(ctx context.Context, cartID string, productID uuid.UUID, quantity int) (cart.Cart, error)
	RemoveItem(ctx context.Context, cartID string, productID uuid.UUID) (cart.Cart, error)
}

type orderService interface {
	List(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
	Track(ctx context.Context, token string) (order.Order, error)
	ConfirmReceipt(ctx context.Context, token string) (order.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to order.Status) (order.Order, error)
}

type recoveryService interface {
	List(ctx context.Context, filter abandonedcart.QueryModel) ([]abandonedcart.AbandonedCart, error)
	Recover(ctx context.Context, id uuid.UUID, withDiscount bool) (abandonedcart.Recovery, error)
}

type eventProcessor interface {
	Process(ctx context.Context, msg eventlog.Message) (eventlog.Outcome, error)
}

type eventSweeper interface {
	Sweep(ctx context.Context) (dispatchsvc.SweepReport, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Services are the handlers' dependencies. ServiceAuth guards the vendor dashboard
// endpoints and the ones called by the event transport and the scheduler.
type Services struct {
	Checkout    checkoutService
	Sessions    sessionManager
	Carts       cartService
	Orders      orderService
	Recovery    recoveryService
	Events      eventProcessor
	Sweeper     eventSweeper
	Database    pinger
	ServiceAuth func(http.Handler) http.Handler
}

type HTTPTransport struct {
	server   *http.Server
	router   *chi.Mux
	services Services
}

func NewHTTPTransport(services Services) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:   server,
		router:   router,
		services: services,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// Handler returns the router, for tests.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/healthz", h.health)

	h.router.Route("/api", func(r chi.Router) {
		r.Post("/checkout", h.placeCheckout)
		r.Post("/checkout/sessions", h.startSession)
		r.Patch("/checkout/sessions/{sessionID}/contact", h.updateSessionContact)
		r.Delete("/checkout/sessions/{sessionID}", h.closeSession)

		r.Route("/carts/{cartID}", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Post("/items", h.addCartItem)
			r.Patch("/items/{productID}", h.setCartItemQuantity)
			r.Delete("/items/{productID}", h.removeCartItem)
		})

		r.Get("/track", h.trackOrder)
		r.Post("/track/confirm", h.confirmReceipt)

		r.Group(func(r chi.Router) {
			h.useServiceAuth(r)
			r.Get("/orders", h.listOrders)
			r.Patch("/orders/{orderID}/status", h.updateOrderStatus)
			r.Get("/stores/{storeID}/abandoned-carts", h.listAbandonedCarts)
			r.Post("/abandoned-carts/{cartID}/recover", h.recoverAbandonedCart)
		})
	})

	h.router.Group(func(r chi.Router) {
		h.useServiceAuth(r)
		r.Post("/process-event", h.processEvent)
		r.Post("/internal/events/sweep", h.sweepEvents)
	})
}

func (h *HTTPTransport) useServiceAuth(r chi.Router) {
	if h.services.ServiceAuth != nil {
		r.Use(h.services.ServiceAuth)
	}
}

func (h *HTTPTransport) health(w http.ResponseWriter, r *http.Request) {
	if h.services.Database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.services.Database.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})

			return
		}
	}

	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPTransport) placeCheckout(w http.ResponseWriter, r *http.Request) {
	placecheckout.PlaceCheckout(w, r, h.services.Checkout)
}

func (h *HTTPTransport) startSession(w http.ResponseWriter, r *http.Request) {
	checkoutsession.StartSession(w, r, h.services.Sessions, h.services.Carts)
}

func (h *HTTPTransport) updateSessionContact(w http.ResponseWriter, r *http.Request) {
	checkoutsession.UpdateContact(w, r, h.services.Sessions)
}

func (h *HTTPTransport) closeSession(w http.ResponseWriter, r *http.Request) {
	checkoutsession.CloseSession(w, r, h.services.Sessions)
}

func (h *HTTPTransport) getCart(w http.ResponseWriter, r *http.Request) {
	cartitems.GetCart(w, r, h.services.Carts)
}

func (h *HTTPTransport) addCartItem(w http.ResponseWriter, r *http.Request) {
	cartitems.AddItem(w, r, h.services.Carts)
}

func (h *HTTPTransport) setCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	cartitems.SetQuantity(w, r, h.services.Carts)
}

func (h *HTTPTransport) removeCartItem(w http.ResponseWriter, r *http.Request) {
	cartitems.RemoveItem(w, r, h.services.Carts)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.services.Orders)
}

func (h *HTTPTransport) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	updateorderstatus.UpdateOrderStatus(w, r, h.services.Orders)
}

func (h *HTTPTransport) trackOrder(w http.ResponseWriter, r *http.Request) {
	trackorder.TrackOrder(w, r, h.services.Orders)
}

func (h *HTTPTransport) confirmReceipt(w http.ResponseWriter, r *http.Request) {
	trackorder.ConfirmReceipt(w, r, h.services.Orders)
}

func (h *HTTPTransport) listAbandonedCarts(w http.ResponseWriter, r *http.Request) {
	abandonedcarts.ListAbandonedCarts(w, r, h.services.Recovery)
}

func (h *HTTPTransport) recoverAbandonedCart(w http.ResponseWriter, r *http.Request) {
	abandonedcarts.RecoverAbandonedCart(w, r, h.services.Recovery)
}

func (h *HTTPTransport) processEvent(w http.ResponseWriter, r *http.Request) {
	processevent.ProcessEvent(w, r, h.services.Events)
}

func (h *HTTPTransport) sweepEvents(w http.ResponseWriter, r *http.Request) {
	sweepevents.SweepEvents(w, r, h.services.Sweeper)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(trace.NewTraceMiddleware(viper.GetString("otel.service_name")))
	router.Use(logger.NewLoggerMiddleware(slog.Default()))

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
