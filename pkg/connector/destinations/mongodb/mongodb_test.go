package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

func spec(options map[string]interface{}) core.Spec {
	return core.Spec{
		Connector: config.ConnectorConfig{Name: "scores", Type: Type, Table: "scores", Options: options},
		DBMS: &config.DBMSConfig{
			Name:             "docs",
			Type:             "mongodb",
			Database:         "app",
			ConnectionString: "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=50",
		},
	}
}

func TestNewSinkIfExists(t *testing.T) {
	ctx := context.Background()

	_, err := NewSink(ctx, spec(map[string]interface{}{"if_exists": "truncate"}))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	sink, err := NewSink(ctx, spec(map[string]interface{}{"if_exists": "replace"}))
	require.NoError(t, err)
	assert.Equal(t, modeReplace, sink.(*Sink).ifExists)
	require.NoError(t, sink.Close(ctx))
}

func TestPutRawRejectsNonArrays(t *testing.T) {
	ctx := context.Background()
	sink, err := NewSink(ctx, spec(nil))
	require.NoError(t, err)
	defer sink.Close(ctx)

	err = sink.PutRaw(ctx, []byte(`{"a": 1}`), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestPutAfterClose(t *testing.T) {
	ctx := context.Background()
	sink, err := NewSink(ctx, spec(nil))
	require.NoError(t, err)
	require.NoError(t, sink.Close(ctx))

	frame := core.NewFrame("a")
	err = sink.PutFrame(ctx, frame, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}
