package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/ajitpratap0/launchpad/examples/addition"
	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/model"
)

const testConfig = `
model_store:
  location: ./models
model:
  name: addition
  version: 1.0.0
  module: addition
datasources:
  samples:
    type: csv
    path: samples.csv
    expires: -1
    tags: [train, test]
`

func writeConfig(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "samples.csv"), []byte("a,b,sum\n1,1,3\n2,3,6\n"), 0o600))
	path := filepath.Join(dir, "launchpad.yml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := NewRootCommand("1.2.3")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Launchpad v1.2.3")
}

func TestList(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	for _, want := range []string{"Datasource types:", "  - csv", "  - dbms.mongodb", "  - kafka", "  - addition"} {
		assert.Contains(t, out, want)
	}
}

func TestNoActionPrintsHelp(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "--train")
}

func TestTrainPredictAndModels(t *testing.T) {
	path := writeConfig(t)

	out, err := execute(t, "-c", path, "-t")
	require.NoError(t, err)
	assert.Contains(t, out, `"mae": 0`)

	out, err = execute(t, "-c", path, "-p", "a=2", "b=2")
	require.NoError(t, err)
	assert.Contains(t, out, `"sum": 5`)

	out, err = execute(t, "-c", path, "-r")
	require.NoError(t, err)
	assert.Contains(t, out, `"metrics"`)

	out, err = execute(t, "models", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"latest": "1.0.0"`)

	_, err = execute(t, "-c", path, "-p", "a")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("LP_SAMPLES_TTL", "-1")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sources.yml"), []byte(`
samples:
  type: csv
  path: samples.csv
  expires: ${LP_SAMPLES_TTL}
  tags: [train, test]
`), 0o600))
	path := filepath.Join(dir, "launchpad.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
model_store:
  location: ./models
model:
  name: addition
  version: 1.0.0
  module: addition
datasources: !include sources.yml
`), 0o600))

	out, err := execute(t, "config", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "samples:")
	assert.Contains(t, out, "expires: -1")
	assert.NotContains(t, out, "!include")

	resolved := filepath.Join(dir, "resolved.yml")
	_, err = execute(t, "config", "-c", path, "-o", resolved)
	require.NoError(t, err)

	cfg, err := config.Load(resolved)
	require.NoError(t, err)
	require.Contains(t, cfg.DataSources, "samples")
	assert.Equal(t, -1, cfg.DataSources["samples"].TTL())
	assert.Equal(t, config.Tags{"train", "test"}, cfg.DataSources["samples"].Tags)

	info, err := os.Stat(resolved)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestMissingConfig(t *testing.T) {
	_, err := execute(t, "-c", filepath.Join(t.TempDir(), "missing.yml"), "-t")
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    model.Args
		wantErr bool
	}{
		{"empty", nil, model.Args{}, false},
		{"pairs", []string{"a=1", "b=x=y"}, model.Args{"a": "1", "b": "x=y"}, false},
		{"empty value", []string{"a="}, model.Args{"a": ""}, false},
		{"no separator", []string{"a"}, nil, true},
		{"no key", []string{"=1"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
