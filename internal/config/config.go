package config

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/feyxa/commerce/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MustInit loads .env (optional), config.yaml (optional) and environment overrides.
func MustInit() {
	if err := godotenv.Load("./.env"); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	SetDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/commerce")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("commerce")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic("error while reading config file: " + err.Error())
		}
	}

	SetupLogger()
}

func SetupLogger() {
	handler := logger.NewHandler(&slog.HandlerOptions{
		Level: logger.ParseLevel(viper.GetString("log.level")),
	})
	log := slog.New(handler)
	slog.SetDefault(log)
}

// SetDefaults registers every key with its default so the service runs without a config file.
func SetDefaults() {
	viper.SetDefault("log.level", "info")

	viper.SetDefault("server.http.port", "8080")
	viper.SetDefault("server.http.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.http.cors.allowed_methods", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"})
	viper.SetDefault("server.http.cors.allowed_headers", []string{"Accept", "Authorization", "Content-Type"})
	viper.SetDefault("server.http.cors.exposed_headers", []string{"X-Request-Id"})
	viper.SetDefault("server.http.cors.allow_credentials", false)
	viper.SetDefault("server.http.cors.max_age", 300)

	viper.SetDefault("server.grpc.port", "9090")
	viper.SetDefault("server.grpc.keepalive.max_connection_idle", 15)
	viper.SetDefault("server.grpc.keepalive.max_connection_age", 30)
	viper.SetDefault("server.grpc.keepalive.max_connection_age_grace", 5)
	viper.SetDefault("server.grpc.keepalive.time", 5)
	viper.SetDefault("server.grpc.keepalive.timeout", 1)
	viper.SetDefault("server.grpc.keepalive.min_time", 5)
	viper.SetDefault("server.grpc.keepalive.permit_without_stream", true)

	viper.SetDefault("postgres.migrations_enabled", true)
	viper.SetDefault("postgres.max_conns", 20)

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.cart_ttl_hours", 72)

	viper.SetDefault("checkout.online_payment_methods", []string{"stripe", "fedapay"})
	viper.SetDefault("checkout.return_url", "http://localhost:3000/checkout/complete")

	viper.SetDefault("events.transport", "http")
	viper.SetDefault("events.max_retries", 3)
	viper.SetDefault("events.sweep.enabled", true)
	viper.SetDefault("events.sweep.batch_size", 20)
	viper.SetDefault("events.sweep.interval_seconds", 60)
	viper.SetDefault("events.sweep.lease_minutes", 10)
	viper.SetDefault("events.sweep.stale_processing_minutes", 10)

	viper.SetDefault("functions.base_url", "http://localhost:8080")
	viper.SetDefault("functions.timeout_seconds", 10)
	viper.SetDefault("functions.issuer", "commerce")
	viper.SetDefault("functions.token_ttl_minutes", 5)
	viper.SetDefault("functions.breaker.timeout_seconds", 30)

	viper.SetDefault("rabbitmq.host", "rabbitmq")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.exchange", "commerce.events")
	viper.SetDefault("rabbitmq.queue", "commerce.events.processor")
	viper.SetDefault("rabbitmq.consumer_tag", "commerce-svc")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topic", "commerce.events")
	viper.SetDefault("kafka.group_id", "commerce-event-processor")

	viper.SetDefault("escrow.hold_days", 7)
	viper.SetDefault("escrow.commission_rate", 0.05)
	viper.SetDefault("escrow.release_interval_seconds", 300)
	viper.SetDefault("escrow.release_batch_size", 100)

	viper.SetDefault("abandoned.capture_delay_ms", 2000)
	viper.SetDefault("abandoned.contact_debounce_ms", 1500)
	viper.SetDefault("abandoned.session_idle_ttl_minutes", 30)

	viper.SetDefault("sideeffects.workers", 4)
	viper.SetDefault("sideeffects.queue_size", 256)
	viper.SetDefault("sideeffects.task_timeout_seconds", 15)

	viper.SetDefault("otel.enabled", true)
	viper.SetDefault("otel.service_name", "commerce-svc")
	viper.SetDefault("otel.jaeger_endpoint", "http://jaeger:14268/api/traces")
}
