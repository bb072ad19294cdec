package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectorTracer(t *testing.T) {
	ct := NewConnectorTracer("csv", "petals")

	called := false
	err := ct.Trace(context.Background(), "get_frame", func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("boom")
	err = ct.Trace(context.Background(), "get_raw", func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestInitializeAndShutdown(t *testing.T) {
	cfg := DefaultConfig("test")
	cfg.SamplingRate = 0.5

	require.NoError(t, Initialize(cfg))
	require.NoError(t, Initialize(cfg))
	assert.NotNil(t, Tracer())
	assert.NoError(t, Shutdown(context.Background()))
	assert.NoError(t, Shutdown(context.Background()))
}
