package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
)

func TestSinkCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	sink, err := NewSink(ctx, core.Spec{
		Connector: config.ConnectorConfig{Name: "model_bin", Type: "binary_file", Path: "out/nested/model.bin"},
		BaseDir:   dir,
	})
	require.NoError(t, err)
	defer sink.Close(ctx)

	require.NoError(t, sink.PutRaw(ctx, []byte{0, 1, 2}, nil))

	data, err := os.ReadFile(filepath.Join(dir, "out", "nested", "model.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, data)
}
