// Package mongodb provides the MongoDB datasink, connector type
// "dbms.mongodb". Frames are inserted into the collection named by "table",
// one document per row. The "if_exists" option decides what happens to a
// collection that already holds documents: "append" (default), "replace"
// or "fail".
package mongodb

import (
	"context"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/connector/base"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/connector/shared/mongostore"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// Type is the connector type served by this package
const Type = "dbms." + mongostore.Type

const (
	modeAppend  = "append"
	modeReplace = "replace"
	modeFail    = "fail"
)

// Sink inserts documents into a collection
type Sink struct {
	*base.BaseConnector
	store    *mongostore.Store
	ifExists string
}

// NewSink creates a MongoDB datasink
func NewSink(ctx context.Context, spec core.Spec) (core.DataSink, error) {
	mode, err := spec.Connector.OptionString("if_exists", modeAppend)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid 'if_exists' option").WithDetail("connector", spec.Name())
	}
	switch mode {
	case modeAppend, modeReplace, modeFail:
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "if_exists must be append, replace or fail, got %q", mode).
			WithDetail("connector", spec.Name())
	}

	store, err := mongostore.Open(ctx, spec)
	if err != nil {
		return nil, err
	}

	s := &Sink{
		BaseConnector: base.NewBaseConnector(spec, core.ConnectorTypeSink),
		store:         store,
		ifExists:      mode,
	}
	s.OnClose(store.Close)
	return s, nil
}

// PutFrame inserts one document per row
func (s *Sink) PutFrame(ctx context.Context, frame *core.Frame, params core.Params) error {
	if frame == nil {
		return errors.New(errors.ErrorTypeValidation, "frame is nil").WithDetail("connector", s.Name())
	}
	return s.insert(ctx, mongostore.Documents(frame), params)
}

// PutRaw inserts a JSON array of objects
func (s *Sink) PutRaw(ctx context.Context, data []byte, params core.Params) error {
	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "raw data must be a JSON array of objects").
			WithDetail("connector", s.Name())
	}
	docs := make([]interface{}, len(records))
	for i, rec := range records {
		docs[i] = bson.M(rec)
	}
	return s.insert(ctx, docs, params)
}

func (s *Sink) insert(ctx context.Context, docs []interface{}, params core.Params) error {
	if err := s.EnsureOpen(); err != nil {
		return err
	}
	if err := s.RejectParams(params); err != nil {
		return err
	}

	coll := s.store.Collection
	err := s.Trace(ctx, "insert", func(ctx context.Context) error {
		switch s.ifExists {
		case modeReplace:
			if err := coll.Drop(ctx); err != nil {
				return err
			}
		case modeFail:
			n, err := coll.CountDocuments(ctx, bson.M{})
			if err != nil {
				return err
			}
			if n > 0 {
				return errors.Newf(errors.ErrorTypeValidation, "collection '%s' already holds documents", coll.Name())
			}
		}
		if len(docs) == 0 {
			return nil
		}
		_, err := coll.InsertMany(ctx, docs)
		return err
	}, attribute.String("db.system", "mongodb"), attribute.String("db.collection", coll.Name()))
	if err != nil {
		return s.Annotate(err, errors.ErrorTypeQuery, "failed to insert documents")
	}

	s.GetLogger().Debug("documents inserted", zap.String("collection", coll.Name()), zap.Int("count", len(docs)))
	return nil
}

// Health pings the server
func (s *Sink) Health(ctx context.Context) error {
	if err := s.EnsureOpen(); err != nil {
		return err
	}
	return s.store.Ping(ctx)
}
