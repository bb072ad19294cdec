// Package mongostore holds the MongoDB client plumbing shared by the mongodb
// datasource and datasink: connecting from a dbms block, building filters
// from the configured query and call parameters, and converting documents to
// and from frames.
package mongostore

import (
	"context"
	"net"
	"net/url"
	"sort"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/logger"
)

// Type is the dbms block type served by this package
const Type = "mongodb"

// Store is a connected collection
type Store struct {
	Client     *mongo.Client
	Collection *mongo.Collection
}

// URI returns the connection URI of a dbms block: its connection_string, or
// one assembled from host, port, credentials and options
func URI(spec core.Spec) (string, error) {
	block := spec.DBMS
	if block.ConnectionString != "" {
		return block.ConnectionString, nil
	}

	user, password, err := block.Credentials()
	if err != nil {
		return "", err
	}
	opts, err := block.ConnectOptions()
	if err != nil {
		return "", err
	}

	host := block.Host
	if host == "" {
		host = "localhost"
	}
	port := block.Port
	if port == 0 {
		port = 27017
	}

	u := url.URL{Scheme: "mongodb", Host: net.JoinHostPort(host, strconv.Itoa(port)), Path: "/"}
	if user != "" {
		u.User = url.UserPassword(user, password)
	}
	q := url.Values{}
	for k, v := range opts {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open connects to the collection named by the connector's "table". The
// driver connects lazily; Ping verifies the server can be reached.
func Open(ctx context.Context, spec core.Spec) (*Store, error) {
	if spec.DBMS == nil {
		return nil, errors.Newf(errors.ErrorTypeConfig, "connector '%s' has no dbms connection", spec.Name()).
			WithDetail("connector", spec.Name())
	}
	if spec.DBMS.Database == "" {
		return nil, errors.Newf(errors.ErrorTypeConfig, "mongodb connection '%s' requires 'database'", spec.DBMS.Name).
			WithDetail("connection", spec.DBMS.Name)
	}
	if spec.Connector.Table == "" {
		return nil, errors.Newf(errors.ErrorTypeConfig, "connector '%s' requires 'table' naming the collection", spec.Name()).
			WithDetail("connector", spec.Name())
	}

	uri, err := URI(spec)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to MongoDB").
			WithDetail("connection", spec.DBMS.Name)
	}

	logger.Debug("mongodb client created",
		zap.String("connection", spec.DBMS.Name),
		zap.String("collection", spec.Connector.Table))

	return &Store{
		Client:     client,
		Collection: client.Database(spec.DBMS.Database).Collection(spec.Connector.Table),
	}, nil
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

// Ping verifies the server can be reached
func (s *Store) Ping(ctx context.Context) error {
	if err := s.Client.Ping(ctx, nil); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to ping MongoDB")
	}
	return nil
}

// Filter parses query as an extended JSON filter document and adds an
// equality condition per call parameter
func Filter(query string, params core.Params) (bson.M, error) {
	filter := bson.M{}
	if query != "" {
		if err := bson.UnmarshalExtJSON([]byte(query), false, &filter); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "query is not a valid JSON filter")
		}
	}
	for k, v := range params {
		filter[k] = v
	}
	return filter, nil
}

// FrameFromDocuments converts documents to a frame. Columns are the union of
// all document keys, sorted, with "_id" first when present.
func FrameFromDocuments(docs []bson.M) *core.Frame {
	seen := map[string]bool{}
	var columns []string
	hasID := false
	for _, doc := range docs {
		for k := range doc {
			if seen[k] {
				continue
			}
			seen[k] = true
			if k == "_id" {
				hasID = true
				continue
			}
			columns = append(columns, k)
		}
	}
	sort.Strings(columns)
	if hasID {
		columns = append([]string{"_id"}, columns...)
	}

	frame := core.NewFrame(columns...)
	for _, doc := range docs {
		row := make([]interface{}, len(columns))
		for i, c := range columns {
			row[i] = Normalize(doc[c])
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame
}

// Normalize converts BSON values to frame values. Object ids become hex
// strings and dates become time.Time; embedded documents and arrays are kept.
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC()
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return t.String()
		}
		return f
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float32:
		return float64(t)
	case primitive.Null, primitive.Undefined:
		return nil
	default:
		return v
	}
}

// Documents converts frame rows to documents, omitting nil values
func Documents(frame *core.Frame) []interface{} {
	docs := make([]interface{}, 0, len(frame.Rows))
	for _, row := range frame.Rows {
		doc := bson.D{}
		for i, c := range frame.Columns {
			if row[i] == nil {
				continue
			}
			doc = append(doc, bson.E{Key: c, Value: row[i]})
		}
		docs = append(docs, doc)
	}
	return docs
}
