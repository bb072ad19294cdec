// Package mongodb provides the MongoDB datasource, connector type
// "dbms.mongodb". The collection is named by "table" and the optional query is
// an extended JSON filter; call parameters add equality conditions:
//
//	datasources:
//	  events:
//	    type: dbms.docs
//	    table: events
//	    query: '{"status": "open"}'
//	    options:
//	      limit: 1000
//	    tags: [train]
package mongodb

import (
	"context"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/connector/base"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/connector/shared/mongostore"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// Type is the connector type served by this package
const Type = "dbms." + mongostore.Type

// Source runs a find per fetch
type Source struct {
	*base.BaseConnector
	store *mongostore.Store
	limit int64
}

// NewSource creates a MongoDB datasource
func NewSource(ctx context.Context, spec core.Spec) (core.DataSource, error) {
	limit, err := spec.Connector.OptionInt("limit", 0)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid option 'limit'").
			WithDetail("connector", spec.Name())
	}
	// Parse the filter up front so a broken query fails at startup
	if _, err := mongostore.Filter(spec.Connector.Query, nil); err != nil {
		return nil, err
	}

	store, err := mongostore.Open(ctx, spec)
	if err != nil {
		return nil, err
	}

	s := &Source{
		BaseConnector: base.NewBaseConnector(spec, core.ConnectorTypeSource),
		store:         store,
		limit:         int64(limit),
	}
	s.OnClose(store.Close)
	return s, nil
}

// GetFrame returns the matching documents, one row per document
func (s *Source) GetFrame(ctx context.Context, params core.Params) (*core.Frame, error) {
	docs, err := s.find(ctx, params)
	if err != nil {
		return nil, err
	}
	frame := mongostore.FrameFromDocuments(docs)
	s.GetLogger().Debug("documents fetched", zap.Int("rows", frame.Len()))
	return frame, nil
}

// GetRaw returns the matching documents as a JSON array
func (s *Source) GetRaw(ctx context.Context, params core.Params) ([]byte, error) {
	docs, err := s.find(ctx, params)
	if err != nil {
		return nil, err
	}
	records := make([]map[string]interface{}, len(docs))
	for i, doc := range docs {
		rec := make(map[string]interface{}, len(doc))
		for k, v := range doc {
			rec[k] = mongostore.Normalize(v)
		}
		records[i] = rec
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode documents")
	}
	return data, nil
}

func (s *Source) find(ctx context.Context, params core.Params) ([]bson.M, error) {
	if err := s.EnsureOpen(); err != nil {
		return nil, err
	}
	filter, err := mongostore.Filter(s.Spec().Connector.Query, params)
	if err != nil {
		return nil, err
	}

	var docs []bson.M
	err = s.Trace(ctx, "find", func(ctx context.Context) error {
		opts := options.Find()
		if s.limit > 0 {
			opts.SetLimit(s.limit)
		}
		cursor, err := s.store.Collection.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		return cursor.All(ctx, &docs)
	}, attribute.String("db.system", "mongodb"))
	if err != nil {
		return nil, s.Annotate(err, errors.ErrorTypeQuery, "find failed")
	}
	return docs, nil
}

// Health pings the server
func (s *Source) Health(ctx context.Context) error {
	if err := s.EnsureOpen(); err != nil {
		return err
	}
	return s.store.Ping(ctx)
}
