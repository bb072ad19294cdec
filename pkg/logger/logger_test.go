package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.yml")
	require.NoError(t, os.WriteFile(path, []byte("level: debug\nencoding: json\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Encoding)
	assert.False(t, cfg.Development)
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestInit_InvalidLevel(t *testing.T) {
	err := Init(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestWithContext(t *testing.T) {
	require.NoError(t, Init(Config{Level: "debug", OutputPaths: []string{filepath.Join(t.TempDir(), "out.log")}}))

	ctx := context.WithValue(context.Background(), ModelKey, "iris")
	ctx = context.WithValue(ctx, PhaseKey, "train")
	assert.NotNil(t, WithContext(ctx))
	assert.NoError(t, Sync())
}
