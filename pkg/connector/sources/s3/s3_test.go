package s3

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

func minioSpec(t *testing.T, endpoint, path string) core.Spec {
	t.Setenv("AWS_ACCESS_KEY_ID", "launchpad")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "launchpad-secret")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	return core.Spec{Connector: config.ConnectorConfig{
		Name: "scores",
		Type: Type,
		Path: path,
		Options: map[string]interface{}{
			"region":         "eu-west-1",
			"endpoint":       endpoint,
			"use_path_style": true,
		},
	}}
}

func TestNewSourceRejectsOtherSchemes(t *testing.T) {
	_, err := NewSource(context.Background(), minioSpec(t, "http://localhost:9000", "gs://analytics/scores.csv"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestGetFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/analytics/scores.csv" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("user,score\nada,3.5\nbob,2\n"))
	}))
	defer server.Close()

	ctx := context.Background()
	src, err := NewSource(ctx, minioSpec(t, server.URL, "s3://analytics/scores.csv"))
	require.NoError(t, err)
	defer src.Close(ctx)

	frame, err := src.GetFrame(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "score"}, frame.Columns)
	assert.Equal(t, 2, frame.Len())

	scores, ok := frame.Column("score")
	require.True(t, ok)
	assert.Equal(t, []interface{}{3.5, 2.0}, scores)
}
