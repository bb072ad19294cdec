package observability

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

var (
	providerMu sync.Mutex
	provider   *sdktrace.TracerProvider
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// SamplingRate is the fraction of traces recorded (0 disables tracing)
	SamplingRate float64
	BatchTimeout time.Duration
}

// DefaultConfig returns a default tracing configuration.
// Sampling is off unless LAUNCHPAD_TRACE_SAMPLING says otherwise.
func DefaultConfig(version string) TracingConfig {
	return TracingConfig{
		ServiceName:    "launchpad",
		ServiceVersion: version,
		Environment:    getEnv("ENVIRONMENT", "development"),
		SamplingRate:   0,
		BatchTimeout:   5 * time.Second,
	}
}

// Initialize installs a global tracer provider exporting to stdout.
// Calling it again replaces the previous provider.
func Initialize(config TracingConfig) error {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SamplingRate <= 0:
		sampler = sdktrace.NeverSample()
	case config.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(config.BatchTimeout)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	providerMu.Lock()
	old := provider
	provider = tp
	providerMu.Unlock()

	if old != nil {
		return old.Shutdown(context.Background())
	}
	return nil
}

// Shutdown flushes and stops the installed tracer provider, if any
func Shutdown(ctx context.Context) error {
	providerMu.Lock()
	tp := provider
	provider = nil
	providerMu.Unlock()

	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
