// Package dbms provides the SQL datasink, writing frames into "table".
// The "if_exists" option controls what happens when the table exists:
// "fail" (default), "replace" or "append".
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
	out := make([]string, 0, len(sqldb.Types()))
	for _, t := range sqldb.Types() {
		out = append(out, "dbms."+t)
	}
	return out
}

// Sink writes frames into a table
type Sink struct {
	*base.BaseConnector
	db       *sqldb.DB
	table    string
	ifExists sqldb.IfExists
}

// NewSink creates a SQL datasink
func NewSink(ctx context.Context, spec core.Spec) (core.DataSink, error) {
	if spec.Connector.Table == "" {
		return nil, errors.Newf(errors.ErrorTypeConfig, "connector '%s' requires 'table'", spec.Name()).
			WithDetail("connector", spec.Name())
	}

	opt, err := spec.Connector.OptionString("if_exists", "")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid 'if_exists' option").WithDetail("connector", spec.Name())
	}
	ifExists, err := sqldb.ParseIfExists(opt)
	if err != nil {
		return nil, err
	}

	db, err := sqldb.Open(spec)
	if err != nil {
		return nil, err
	}

	s := &Sink{
		BaseConnector: base.NewBaseConnector(spec, core.ConnectorTypeSink),
		db:            db,
		table:         spec.Connector.Table,
		ifExists:      ifExists,
	}
	s.OnClose(func(ctx context.Context) error { return db.Close() })
	return s, nil
}

// PutFrame stores frame in the table
func (s *Sink) PutFrame(ctx context.Context, frame *core.Frame, params core.Params) error {
	if err := s.EnsureOpen(); err != nil {
		return err
	}
	if err := s.RejectParams(params); err != nil {
		return err
	}
	if frame == nil {
		return errors.New(errors.ErrorTypeValidation, "frame is nil").WithDetail("connector", s.Name())
	}

	err := s.Trace(ctx, "put_frame", func(ctx context.Context) error {
		return s.db.WriteFrame(ctx, s.table, frame, s.ifExists)
	}, attribute.String("db.system", s.db.Dialect.Name), attribute.String("db.table", s.table))
	if err != nil {
		return s.Annotate(err, errors.ErrorTypeQuery, "failed to store frame")
	}

	s.GetLogger().Debug("frame stored", zap.String("table", s.table), zap.Int("rows", frame.Len()))
	return nil
}

// PutRaw is not supported by SQL datasinks
func (s *Sink) PutRaw(ctx context.Context, data []byte, params core.Params) error {
	return s.Unsupported("raw writes", "use frame writes")
}

// Health pings the database
func (s *Sink) Health(ctx context.Context) error {
	if err := s.EnsureOpen(); err != nil {
		return err
	}
	return s.db.Ping(ctx)
}
