package jaeger

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/exporters/jaeger"
)

var ErrNoEndpoint = errors.New("otel.jaeger_endpoint is not set")

// NewExporter sends spans to a Jaeger collector over HTTP.
func NewExporter(endpoint string) (*jaeger.Exporter, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(endpoint),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create jaeger exporter: %w", err)
	}

	return exp, nil
}

// MustNewJaeger reads otel.jaeger_endpoint.
func MustNewJaeger() *jaeger.Exporter {
	exp, err := NewExporter(viper.GetString("otel.jaeger_endpoint"))
	if err != nil {
		panic(err)
	}

	return exp
}
