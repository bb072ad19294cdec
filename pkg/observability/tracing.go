// Package observability provides OpenTelemetry tracing for Launchpad.
// Until Initialize is called the global no-op tracer is used, so spans are free.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ajitpratap0/launchpad"

// Tracer returns the tracer of the currently installed provider
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// ConnectorTracer provides connector-specific tracing utilities
type ConnectorTracer struct {
	connectorType string
	connectorName string
}

// NewConnectorTracer creates a new connector tracer
func NewConnectorTracer(connectorType, connectorName string) *ConnectorTracer {
	return &ConnectorTracer{
		connectorType: connectorType,
		connectorName: connectorName,
	}
}

// Trace runs fn inside a span named "<type>.<operation>" and records its outcome
func (ct *ConnectorTracer) Trace(ctx context.Context, operation string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := Tracer().Start(ctx, ct.connectorType+"."+operation,
		trace.WithAttributes(
			attribute.String("connector.type", ct.connectorType),
			attribute.String("connector.name", ct.connectorName),
			attribute.String("connector.operation", operation),
		),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	err := fn(ctx)
	RecordOutcome(span, err)
	return err
}

// RecordOutcome sets the span status from err
func RecordOutcome(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
