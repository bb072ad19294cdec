// Package base provides the BaseConnector embedded by the built-in datasources
// and datasinks. It implements the behaviour every connector shares: naming,
// a scoped logger, tracing of fetches and writes, idempotent shutdown and
// the checks for unsupported call parameters.
//
// # Usage
//
//	type FileSource struct {
//	    *base.BaseConnector
//	    // connector-specific fields
//	}
//
//	func NewFileSource(spec core.Spec) *FileSource {
//	    s := &FileSource{BaseConnector: base.NewBaseConnector(spec, core.ConnectorTypeSource)}
//	    s.OnClose(func(ctx context.Context) error { return s.file.Close() })
//	    return s
//	}
//
// # Lifecycle
//
// 1. Create with NewBaseConnector, which counts the connector as active
// 2. Register resources to release with OnClose
// 3. Guard operations with EnsureOpen
// 4. Close runs the registered closers once, in reverse order
package base

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/logger"
	"github.com/ajitpratap0/launchpad/pkg/metrics"
	"github.com/ajitpratap0/launchpad/pkg/observability"
)

// Closer releases one resource held by a connector
type Closer func(ctx context.Context) error

// BaseConnector provides common functionality for all connectors
type BaseConnector struct {
	// Core fields
	name          string             // Configured connector name
	typ           string             // Configured type, e.g. "csv" or "dbms.warehouse"
	connectorType core.ConnectorType // Source or sink
	spec          core.Spec
	logger        *zap.Logger
	tracer        *observability.ConnectorTracer

	// Resource management
	closed     bool
	closers    []Closer
	closeMutex sync.Mutex
}

// NewBaseConnector creates the base for the connector described by spec
func NewBaseConnector(spec core.Spec, connectorType core.ConnectorType) *BaseConnector {
	metrics.ActiveConnectors.WithLabelValues(string(connectorType)).Inc()

	return &BaseConnector{
		name:          spec.Name(),
		typ:           spec.Connector.Type,
		connectorType: connectorType,
		spec:          spec,
		logger: logger.Get().With(
			zap.String("connector", spec.Name()),
			zap.String("type", spec.Connector.Type),
		),
		tracer: observability.NewConnectorTracer(string(connectorType), spec.Name()),
	}
}

// Name returns the configured connector name
func (bc *BaseConnector) Name() string {
	return bc.name
}

// Type returns the configured connector type
func (bc *BaseConnector) Type() string {
	return bc.typ
}

// Kind reports whether this is a source or a sink
func (bc *BaseConnector) Kind() core.ConnectorType {
	return bc.connectorType
}

// Spec returns the spec the connector was built from
func (bc *BaseConnector) Spec() core.Spec {
	return bc.spec
}

// GetLogger returns the connector's logger
func (bc *BaseConnector) GetLogger() *zap.Logger {
	return bc.logger
}

// Trace runs fn inside a span for operation
func (bc *BaseConnector) Trace(ctx context.Context, operation string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	return bc.tracer.Trace(ctx, operation, fn, attrs...)
}

// OnClose registers a closer run by Close
func (bc *BaseConnector) OnClose(fn Closer) {
	bc.closeMutex.Lock()
	defer bc.closeMutex.Unlock()
	bc.closers = append(bc.closers, fn)
}

// EnsureOpen returns an error once the connector has been closed
func (bc *BaseConnector) EnsureOpen() error {
	bc.closeMutex.Lock()
	defer bc.closeMutex.Unlock()
	if bc.closed {
		return errors.New(errors.ErrorTypeConnection, "connector is closed").
			WithDetail("connector", bc.name)
	}
	return nil
}

// Health reports whether the connector is still open
func (bc *BaseConnector) Health(ctx context.Context) error {
	return bc.EnsureOpen()
}

// Close runs the registered closers in reverse order. Closing twice is a no-op.
func (bc *BaseConnector) Close(ctx context.Context) error {
	bc.closeMutex.Lock()
	defer bc.closeMutex.Unlock()

	if bc.closed {
		return nil
	}
	bc.closed = true
	metrics.ActiveConnectors.WithLabelValues(string(bc.connectorType)).Dec()

	var errs []error
	for i := len(bc.closers) - 1; i >= 0; i-- {
		if err := bc.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	bc.closers = nil

	if err := errors.Join(errs...); err != nil {
		bc.logger.Warn("connector closed with errors", zap.Error(err))
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to close connector").
			WithDetail("connector", bc.name)
	}

	bc.logger.Debug("connector closed")
	return nil
}

// RejectParams returns a capability error when params is non-empty, for
// connectors that take no call parameters
func (bc *BaseConnector) RejectParams(params core.Params) error {
	if len(params) == 0 {
		return nil
	}
	return errors.Newf(errors.ErrorTypeCapability, "connector '%s' of type '%s' does not support parameters", bc.name, bc.typ).
		WithDetail("connector", bc.name)
}

// Unsupported returns a capability error for an operation the connector type cannot perform
func (bc *BaseConnector) Unsupported(operation, hint string) error {
	msg := "connector '" + bc.name + "' of type '" + bc.typ + "' does not support " + operation
	if hint != "" {
		msg += ": " + hint
	}
	return errors.New(errors.ErrorTypeCapability, msg).WithDetail("connector", bc.name)
}

// ResolvePath resolves p relative to the directory of the configuration file.
// Absolute paths and URLs are returned unchanged.
func (bc *BaseConnector) ResolvePath(p string) string {
	return ResolvePath(bc.spec.BaseDir, p)
}

// ResolvePath resolves p relative to baseDir unless p is empty, absolute or a URL
func ResolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}

// Annotate adds the connector name to a structured error. Other errors are
// wrapped as errType with msg.
func (bc *BaseConnector) Annotate(err error, errType errors.ErrorType, msg string) error {
	if err == nil {
		return nil
	}
	var e *errors.Error
	if errors.As(err, &e) {
		e.WithDetail("connector", bc.name)
		return err
	}
	return errors.Wrap(err, errType, msg).WithDetail("connector", bc.name)
}
