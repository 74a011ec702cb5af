package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feyxa/commerce/internal/dal/eventbus"
	"github.com/feyxa/commerce/internal/dal/functions"
	"github.com/feyxa/commerce/internal/dal/kafka"
	"github.com/feyxa/commerce/internal/dal/postgres"
	"github.com/feyxa/commerce/internal/dal/rabbitmq"
	abandonedcartrepo "github.com/feyxa/commerce/internal/dal/repositories/abandonedcart/postgres"
	attributionrepo "github.com/feyxa/commerce/internal/dal/repositories/attribution/postgres"
	cartrepo "github.com/feyxa/commerce/internal/dal/repositories/cart/redis"
	couponrepo "github.com/feyxa/commerce/internal/dal/repositories/coupon/postgres"
	escrowrepo "github.com/feyxa/commerce/internal/dal/repositories/escrow/postgres"
	eventlogrepo "github.com/feyxa/commerce/internal/dal/repositories/eventlog/postgres"
	orderrepo "github.com/feyxa/commerce/internal/dal/repositories/order/postgres"
	orderitemrepo "github.com/feyxa/commerce/internal/dal/repositories/orderitem/postgres"
	"github.com/feyxa/commerce/internal/dal/uow"
	"github.com/feyxa/commerce/internal/otel"
	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/feyxa/commerce/internal/service/models/order"
	"github.com/feyxa/commerce/internal/service/services/cartrecorder"
	"github.com/feyxa/commerce/internal/service/services/cartsvc"
	"github.com/feyxa/commerce/internal/service/services/checkoutsvc"
	"github.com/feyxa/commerce/internal/service/services/dispatchsvc"
	"github.com/feyxa/commerce/internal/service/services/escrowsvc"
	"github.com/feyxa/commerce/internal/service/services/eventsvc"
	"github.com/feyxa/commerce/internal/service/services/ordersvc"
	"github.com/feyxa/commerce/internal/service/services/recoverysvc"
	amqpconsumer "github.com/feyxa/commerce/internal/transport/consumer/amqp"
	kafkaconsumer "github.com/feyxa/commerce/internal/transport/consumer/kafka"
	grpctransport "github.com/feyxa/commerce/internal/transport/grpc"
	httptransport "github.com/feyxa/commerce/internal/transport/http"
	escrowworker "github.com/feyxa/commerce/internal/worker/escrow"
	retryworker "github.com/feyxa/commerce/internal/worker/retry"
	"github.com/feyxa/commerce/internal/worker/sideeffect"
	"github.com/feyxa/commerce/pkg/servicetoken"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const (
	transportHTTP  = "http"
	transportAMQP  = "amqp"
	transportKafka = "kafka"

	shutdownTimeout = 10 * time.Second
)

type dispatcher interface {
	Dispatch(ctx context.Context, msg eventlog.Message) error
}

// eventConsumer feeds events from a broker to the local processor.
type eventConsumer interface {
	Run(ctx context.Context) error
	Shutdown() error
}

type closer interface {
	Close() error
}

// App represents the application.
type App struct {
	httpTransport *httptransport.HTTPTransport
	grpcTransport *grpctransport.GRPCTransport
	consumer      eventConsumer

	retryWorker  *retryworker.Worker
	escrowWorker *escrowworker.Worker
	sideEffects  *sideeffect.Queue
	sessions     *cartrecorder.Manager

	postgresClient *postgres.Client
	redisClient    *redis.Client
	brokers        []closer
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()
	postgresClient := postgres.MustNewClient()
	redisClient := cartrepo.MustNewClient()
	functionsClient := functions.MustNewClient()

	sideEffects := sideeffect.MustNewQueue()

	// Repositories
	orderRepository := orderrepo.NewOrderRepository(postgresClient.Pool())
	orderItemRepository := orderitemrepo.NewOrderItemRepository(postgresClient.Pool())
	eventLogRepository := eventlogrepo.NewEventLogRepository(postgresClient.Pool())
	escrowRepository := escrowrepo.NewEscrowRepository(postgresClient.Pool())
	abandonedCartRepository := abandonedcartrepo.NewAbandonedCartRepository(postgresClient.Pool())
	couponRepository := couponrepo.NewCouponRepository(postgresClient.Pool())
	attributionRepository := attributionrepo.NewAttributionRepository(postgresClient.Pool())
	cartStore := cartrepo.NewCartStore(redisClient, time.Duration(viper.GetInt("redis.cart_ttl_hours"))*time.Hour)

	transport := viper.GetString("events.transport")
	events := mustNewEventTransport(transport, functionsClient)

	dispatchSvc := dispatchsvc.MustNewDispatchService(
		dispatchsvc.WithEventLogRepository(eventLogRepository),
		dispatchsvc.WithDispatcher(events.dispatcher),
		dispatchsvc.WithSideEffects(sideEffects),
		dispatchsvc.WithBatchSize(viper.GetInt("events.sweep.batch_size")),
		dispatchsvc.WithLease(time.Duration(viper.GetInt("events.sweep.lease_minutes"))*time.Minute),
		dispatchsvc.WithMaxRetries(viper.GetInt("events.max_retries")),
	)

	escrowSvc := escrowsvc.MustNewEscrowService(
		escrowsvc.WithEscrowRepository(escrowRepository),
		escrowsvc.WithHoldDays(viper.GetInt("escrow.hold_days")),
		escrowsvc.WithCommissionRate(viper.GetFloat64("escrow.commission_rate")),
		escrowsvc.WithReleaseBatchSize(viper.GetInt("escrow.release_batch_size")),
	)

	eventSvc := eventsvc.MustNewEventService(
		eventsvc.WithEventLogRepository(eventLogRepository),
		eventsvc.WithEscrow(escrowSvc),
		eventsvc.WithMailer(functionsClient),
		eventsvc.WithLease(time.Duration(viper.GetInt("events.sweep.stale_processing_minutes"))*time.Minute),
	)

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithOrderRepository(orderRepository),
		ordersvc.WithOrderItemRepository(orderItemRepository),
		ordersvc.WithEvents(dispatchSvc),
	)

	cartSvc := cartsvc.MustNewCartService(
		cartsvc.WithCartStore(cartStore),
	)

	sessions := cartrecorder.MustNewManager(
		cartrecorder.WithAbandonedCartRepository(abandonedCartRepository),
		cartrecorder.WithCaptureDelay(time.Duration(viper.GetInt("abandoned.capture_delay_ms"))*time.Millisecond),
		cartrecorder.WithContactDebounce(time.Duration(viper.GetInt("abandoned.contact_debounce_ms"))*time.Millisecond),
		cartrecorder.WithIdleTTL(time.Duration(viper.GetInt("abandoned.session_idle_ttl_minutes"))*time.Minute),
	)

	recoverySvc := recoverysvc.MustNewRecoveryService(
		recoverysvc.WithAbandonedCartRepository(abandonedCartRepository),
		recoverysvc.WithCouponRepository(couponRepository),
		recoverysvc.WithMailer(functionsClient),
	)

	checkoutSvc := checkoutsvc.MustNewCheckoutService(
		checkoutsvc.WithUnitOfWork(uow.NewFactory(postgresClient)),
		checkoutsvc.WithCartStore(cartSvc),
		checkoutsvc.WithEvents(dispatchSvc),
		checkoutsvc.WithAttributionRepository(attributionRepository),
		checkoutsvc.WithSideEffects(sideEffects),
		checkoutsvc.WithPayments(functionsClient),
		checkoutsvc.WithCheckoutSessions(sessions),
		checkoutsvc.WithOnlinePaymentMethods(onlinePaymentMethods()...),
		checkoutsvc.WithReturnURL(viper.GetString("checkout.return_url")),
	)

	signer := servicetoken.NewSigner(
		viper.GetString("functions.service_secret"),
		viper.GetString("functions.issuer"),
		time.Duration(viper.GetInt("functions.token_ttl_minutes"))*time.Minute,
	)

	httpTransport := httptransport.NewHTTPTransport(httptransport.Services{
		Checkout:    checkoutSvc,
		Sessions:    sessions,
		Carts:       cartSvc,
		Orders:      orderSvc,
		Recovery:    recoverySvc,
		Events:      eventSvc,
		Sweeper:     dispatchSvc,
		Database:    postgresClient,
		ServiceAuth: signer.Middleware,
	})
	httpTransport.RegisterRoutes()

	grpcTransport := grpctransport.NewGRPCTransport()
	grpcTransport.RegisterServices()

	var consumer eventConsumer
	switch transport {
	case transportAMQP:
		// The publishing connection is reused for consuming.
		consumer = amqpconsumer.NewConsumer(events.rabbitMqClient, eventSvc)
	case transportKafka:
		reader := kafka.MustNewConsumer()
		events.closers = append(events.closers, reader)
		consumer = kafkaconsumer.NewConsumer(reader, eventSvc)
	}

	var retryWorker *retryworker.Worker
	if viper.GetBool("events.sweep.enabled") {
		retryWorker = retryworker.NewWorker(dispatchSvc)
	}

	escrowWorker := escrowworker.NewWorker(
		escrowSvc,
		time.Duration(viper.GetInt("escrow.release_interval_seconds"))*time.Second,
	)

	return &App{
		httpTransport:  httpTransport,
		grpcTransport:  grpcTransport,
		consumer:       consumer,
		retryWorker:    retryWorker,
		escrowWorker:   escrowWorker,
		sideEffects:    sideEffects,
		sessions:       sessions,
		postgresClient: postgresClient,
		redisClient:    redisClient,
		brokers:        events.closers,
		otelController: otelController,
	}
}

// eventTransport is the outbound side of events.transport and the connections it opened.
type eventTransport struct {
	dispatcher     dispatcher
	rabbitMqClient *rabbitmq.Client
	closers        []closer
}

func mustNewEventTransport(transport string, functionsClient *functions.Client) eventTransport {
	switch transport {
	case transportHTTP:
		return eventTransport{dispatcher: eventbus.NewHTTPDispatcher(functionsClient)}
	case transportAMQP:
		client := rabbitmq.MustNewClient()
		exchange := viper.GetString("rabbitmq.exchange")
		if err := client.DeclareTopology(exchange); err != nil {
			panic("failed to declare rabbitmq topology: " + err.Error())
		}

		return eventTransport{
			dispatcher:     eventbus.NewAMQPDispatcher(client, exchange),
			rabbitMqClient: client,
			closers:        []closer{client},
		}
	case transportKafka:
		producer := kafka.MustNewProducer()

		return eventTransport{
			dispatcher: eventbus.NewKafkaDispatcher(producer),
			closers:    []closer{producer},
		}
	default:
		panic("unknown events.transport: " + transport)
	}
}

func onlinePaymentMethods() []order.PaymentMethod {
	names := viper.GetStringSlice("checkout.online_payment_methods")
	methods := make([]order.PaymentMethod, 0, len(names))
	for _, name := range names {
		methods = append(methods, order.PaymentMethod(name))
	}

	return methods
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.sideEffects.Start()

	go func() {
		slog.Info("Starting HTTP server", "port", viper.GetString("server.http.port"))
		if err := a.httpTransport.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting gRPC server", "port", viper.GetString("server.grpc.port"))
		if err := a.grpcTransport.Run(); err != nil {
			slog.Error("gRPC server error", "error", err)
		}
	}()

	if a.consumer != nil {
		go func() {
			slog.Info("Starting event consumer", "transport", viper.GetString("events.transport"))
			if err := a.consumer.Run(ctx); err != nil {
				slog.Error("Event consumer error", "error", err)
			}
		}()
	}

	if a.retryWorker != nil {
		go func() {
			slog.Info("Starting retry worker")
			a.retryWorker.Start(ctx)
		}()
	}

	go func() {
		slog.Info("Starting escrow worker")
		a.escrowWorker.Start(ctx)
	}()

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown stops intake first, then the background work, then closes connections.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpTransport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.grpcTransport.Shutdown(ctx); err != nil {
		slog.Error("gRPC server shutdown error", "error", err)
	} else {
		slog.Info("gRPC server stopped gracefully")
	}

	if a.consumer != nil {
		if err := a.consumer.Shutdown(); err != nil {
			slog.Error("Event consumer shutdown error", "error", err)
		} else {
			slog.Info("Event consumer stopped gracefully")
		}
	}

	if a.retryWorker != nil {
		a.retryWorker.Stop()
		slog.Info("Retry worker stopped gracefully")
	}

	a.escrowWorker.Stop()
	slog.Info("Escrow worker stopped gracefully")

	a.sessions.Shutdown()
	slog.Info("Checkout sessions closed")

	a.sideEffects.Close()
	slog.Info("Side-effect queue drained")

	for _, b := range a.brokers {
		if err := b.Close(); err != nil {
			slog.Error("Broker connection close error", "error", err)
		}
	}

	if err := a.redisClient.Close(); err != nil {
		slog.Error("Redis connection close error", "error", err)
	} else {
		slog.Info("Redis connection closed gracefully")
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed")

	if err := a.otelController.Shutdown(ctx); err != nil {
		slog.Error("Otel trace provider connection close error", "error", err)
	} else {
		slog.Info("Otel trace provider connection closed gracefully")
	}

	slog.Info("Application shutdown complete")
}
