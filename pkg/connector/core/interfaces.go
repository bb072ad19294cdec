package core

import (
	"context"

	"github.com/ajitpratap0/launchpad/pkg/config"
)

// ConnectorType represents the kind of connector
type ConnectorType string

const (
	ConnectorTypeSource ConnectorType = "source"
	ConnectorTypeSink   ConnectorType = "sink"
)

// Params are the call parameters of a fetch or write, e.g. the values bound to
// ":name" placeholders of a query. Distinct parameter sets are cached independently.
type Params map[string]interface{}

// DataSource is the interface that all datasources implement.
// Every implementation behaves the same for model code regardless of the backing technology.
type DataSource interface {
	// GetFrame fetches tabular data
	GetFrame(ctx context.Context, params Params) (*Frame, error)
	// GetRaw fetches unparsed data
	GetRaw(ctx context.Context, params Params) ([]byte, error)
	// Close releases the connector's resources
	Close(ctx context.Context) error
}

// DataSink is the interface that all datasinks implement
type DataSink interface {
	// PutFrame writes tabular data
	PutFrame(ctx context.Context, frame *Frame, params Params) error
	// PutRaw writes unparsed data
	PutRaw(ctx context.Context, data []byte, params Params) error
	// Close releases the connector's resources
	Close(ctx context.Context) error
}

// HealthChecker is implemented by connectors that can verify their backend is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Spec is everything a connector factory needs to construct one connector
type Spec struct {
	// Connector is the connector's own configuration block
	Connector config.ConnectorConfig
	// DBMS is the referenced connection block for "dbms.<name>" types, nil otherwise
	DBMS *config.DBMSConfig
	// BaseDir resolves relative paths, usually the directory of the config file
	BaseDir string
}

// Name returns the configured connector name
func (s Spec) Name() string {
	return s.Connector.Name
}

// SourceFactory creates a datasource from its spec
type SourceFactory func(ctx context.Context, spec Spec) (DataSource, error)

// SinkFactory creates a datasink from its spec
type SinkFactory func(ctx context.Context, spec Spec) (DataSink, error)
