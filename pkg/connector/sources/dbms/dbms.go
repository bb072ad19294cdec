// Package dbms provides the SQL datasource. It serves the connector types
// "dbms.sql", "dbms.postgres", "dbms.mysql", "dbms.sqlite" and
// "dbms.snowflake", which the factory derives from "type: dbms.<connection>"
// and the type of the referenced dbms block.
//
// The query may contain ":name" parameters, bound from the call parameters:
//
//	datasources:
//	  customer:
//	    type: dbms.warehouse
//	    query: SELECT * FROM customers WHERE region = :region
//	    expires: 3600
//	    tags: predict
package dbms

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/connector/base"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/connector/shared/sqldb"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// Types lists the connector types served by this package
func Types() []string {
	types := sqldb.Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = "dbms." + t
	}
	return out
}

// Source runs a query per fetch
type Source struct {
	*base.BaseConnector
	db    *sqldb.DB
	query string
}

// NewSource creates a SQL datasource. The query comes from "query", or
// selects the whole of "table" when no query is configured.
func NewSource(ctx context.Context, spec core.Spec) (core.DataSource, error) {
	query := spec.Connector.Query
	if query == "" && spec.Connector.Table != "" {
		query = "SELECT * FROM " + spec.Connector.Table
	}
	if query == "" {
		return nil, errors.Newf(errors.ErrorTypeConfig, "connector '%s' requires 'query' or 'table'", spec.Name()).
			WithDetail("connector", spec.Name())
	}

	db, err := sqldb.Open(spec)
	if err != nil {
		return nil, err
	}

	s := &Source{
		BaseConnector: base.NewBaseConnector(spec, core.ConnectorTypeSource),
		db:            db,
		query:         query,
	}
	s.OnClose(func(ctx context.Context) error { return db.Close() })
	return s, nil
}

// GetFrame runs the query with params bound to its parameters
func (s *Source) GetFrame(ctx context.Context, params core.Params) (*core.Frame, error) {
	if err := s.EnsureOpen(); err != nil {
		return nil, err
	}

	var frame *core.Frame
	err := s.Trace(ctx, "get_frame", func(ctx context.Context) error {
		var err error
		frame, err = s.db.QueryFrame(ctx, s.query, params)
		return err
	}, attribute.String("db.system", s.db.Dialect.Name))
	if err != nil {
		return nil, s.Annotate(err, errors.ErrorTypeQuery, "query failed")
	}

	s.GetLogger().Debug("query fetched", zap.Int("rows", frame.Len()))
	return frame, nil
}

// GetRaw is not supported by SQL datasources
func (s *Source) GetRaw(ctx context.Context, params core.Params) ([]byte, error) {
	return nil, s.Unsupported("raw reads", "use frame reads")
}

// Health pings the database
func (s *Source) Health(ctx context.Context) error {
	if err := s.EnsureOpen(); err != nil {
		return err
	}
	return s.db.Ping(ctx)
}
