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

func spec(query string, options map[string]interface{}) core.Spec {
	return core.Spec{
		Connector: config.ConnectorConfig{Name: "events", Type: Type, Table: "events", Query: query, Options: options},
		DBMS: &config.DBMSConfig{
			Name:             "docs",
			Type:             "mongodb",
			Database:         "app",
			ConnectionString: "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=50",
		},
	}
}

func TestNewSource(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		query   string
		options map[string]interface{}
		errType errors.ErrorType
	}{
		{name: "filter", query: `{"status": "open"}`, options: map[string]interface{}{"limit": 10}},
		{name: "no filter"},
		{name: "bad filter", query: `{status`, errType: errors.ErrorTypeConfig},
		{name: "bad limit", options: map[string]interface{}{"limit": "many"}, errType: errors.ErrorTypeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewSource(ctx, spec(tt.query, tt.options))
			if tt.errType != "" {
				assert.True(t, errors.IsType(err, tt.errType), "got %v", err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, src.Close(ctx))
		})
	}
}

func TestUnreachableServer(t *testing.T) {
	ctx := context.Background()
	src, err := NewSource(ctx, spec("", nil))
	require.NoError(t, err)
	defer src.Close(ctx)

	_, err = src.GetFrame(ctx, core.Params{"status": "open"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))

	err = src.(core.HealthChecker).Health(ctx)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}
