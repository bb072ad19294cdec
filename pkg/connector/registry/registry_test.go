package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// namedSource is a datasource that only reports which implementation built it
type namedSource struct {
	impl string
}

func (s *namedSource) GetFrame(ctx context.Context, params core.Params) (*core.Frame, error) {
	f := core.NewFrame("impl")
	_ = f.Append(s.impl)
	return f, nil
}

func (s *namedSource) GetRaw(ctx context.Context, params core.Params) ([]byte, error) {
	return []byte(s.impl), nil
}

func (s *namedSource) Close(ctx context.Context) error { return nil }

func sourceFactory(impl string) core.SourceFactory {
	return func(ctx context.Context, spec core.Spec) (core.DataSource, error) {
		return &namedSource{impl: impl}, nil
	}
}

func build(t *testing.T, r *Registry, typ string) string {
	t.Helper()
	factory, err := r.ResolveSource(typ)
	require.NoError(t, err)
	src, err := factory(context.Background(), core.Spec{})
	require.NoError(t, err)
	raw, err := src.GetRaw(context.Background(), nil)
	require.NoError(t, err)
	return string(raw)
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := New()

	_, err := r.ResolveSource("dbms.oracle")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeLookup))
	assert.Contains(t, err.Error(), "dbms.oracle")

	_, err = r.ResolveSink("parquet")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeLookup))
}

func TestRegistry_LastWriteWins(t *testing.T) {
	r := New()
	r.RegisterSource("csv", sourceFactory("builtin"))
	assert.Equal(t, "builtin", build(t, r, "csv"))

	r.RegisterSource("csv", sourceFactory("plugin"))
	assert.Equal(t, "plugin", build(t, r, "csv"))

	assert.Equal(t, []string{"csv"}, r.SourceTypes())
}

func TestRegistry_NotRetroactive(t *testing.T) {
	r := New()
	r.RegisterSource("csv", sourceFactory("builtin"))

	factory, err := r.ResolveSource("csv")
	require.NoError(t, err)
	before, err := factory(context.Background(), core.Spec{})
	require.NoError(t, err)

	r.RegisterSource("csv", sourceFactory("plugin"))

	raw, err := before.GetRaw(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "builtin", string(raw))
}

func TestRegistry_TypesInRegistrationOrder(t *testing.T) {
	r := New()
	for _, typ := range []string{"text_file", "csv", "dbms.sqlite", "csv", "binary_file"} {
		r.RegisterSource(typ, sourceFactory(typ))
	}
	assert.Equal(t, []string{"text_file", "csv", "dbms.sqlite", "binary_file"}, r.SourceTypes())
	assert.True(t, r.HasSource("dbms.sqlite"))
	assert.False(t, r.HasSink("dbms.sqlite"))
	assert.Empty(t, r.SinkTypes())
}

func TestRegistry_ApplyPlugins(t *testing.T) {
	catalog := NewCatalog()
	catalog.Register("fast_csv", func(r *Registry) {
		r.RegisterSource("csv", sourceFactory("fast_csv"))
	})
	catalog.Register("faster_csv", func(r *Registry) {
		r.RegisterSource("csv", sourceFactory("faster_csv"))
	})

	tests := []struct {
		name    string
		plugins []string
		want    string
	}{
		{"no plugins keeps builtin", nil, "builtin"},
		{"single plugin overrides builtin", []string{"fast_csv"}, "fast_csv"},
		{"last plugin wins", []string{"faster_csv", "fast_csv"}, "fast_csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			r.RegisterSource("csv", sourceFactory("builtin"))
			require.NoError(t, r.Apply(catalog, tt.plugins))
			assert.Equal(t, tt.want, build(t, r, "csv"))
		})
	}
}

func TestRegistry_ApplyUnknownPlugin(t *testing.T) {
	catalog := NewCatalog()
	applied := false
	catalog.Register("known", func(r *Registry) { applied = true })

	r := New()
	err := r.Apply(catalog, []string{"known", "missing"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeLookup))
	assert.Contains(t, err.Error(), "missing")
	assert.False(t, applied)
}

func TestCatalog_Names(t *testing.T) {
	catalog := NewCatalog()
	catalog.Register("b", func(r *Registry) {})
	catalog.Register("a", func(r *Registry) {})
	assert.Equal(t, []string{"a", "b"}, catalog.Names())
}
