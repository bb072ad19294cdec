package gcs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

func emulatorSpec(path string) core.Spec {
	return core.Spec{Connector: config.ConnectorConfig{
		Name:    "scores",
		Type:    Type,
		Path:    path,
		Options: map[string]interface{}{"endpoint": "http://localhost:4443/storage/v1/"},
	}}
}

func TestNewSourceRejectsOtherSchemes(t *testing.T) {
	_, err := NewSource(context.Background(), emulatorSpec("s3://bucket/scores.csv"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(context.Background(), emulatorSpec("gs://bucket/scores.csv"))
	if assert.NoError(t, err) {
		assert.NoError(t, src.Close(context.Background()))
	}
}
