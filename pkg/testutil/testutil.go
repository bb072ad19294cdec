// Package testutil provides test doubles and helpers shared by launchpad tests
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// TestLogger creates a logger writing to the test output
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext returns a context cancelled after 30 seconds or when the test ends
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// WriteFile writes content to name below dir, creating directories, and
// returns the full path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// IntPtr returns a pointer to v, for the optional integer config keys
func IntPtr(v int) *int {
	return &v
}

// Clock is a manually advanced clock
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at 2024-01-01 UTC
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// CountingSource is a datasource returning a fresh frame per call. It counts
// the fetches that reach it.
type CountingSource struct {
	Frames atomic.Int64
	Raws   atomic.Int64
	Fail   atomic.Bool
	Closed atomic.Bool
	// Delay is waited before every frame fetch, or until ctx is done
	Delay time.Duration
}

var _ core.DataSource = (*CountingSource)(nil)

// GetFrame returns a frame holding the call number and the params
func (s *CountingSource) GetFrame(ctx context.Context, params core.Params) (*core.Frame, error) {
	n := s.Frames.Add(1)
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.Fail.Load() {
		return nil, errors.New(errors.ErrorTypeConnection, "backend down")
	}
	f := core.NewFrame("call", "params")
	_ = f.Append(n, fmt.Sprint(params))
	return f, nil
}

// GetRaw returns "raw-<call number>"
func (s *CountingSource) GetRaw(ctx context.Context, params core.Params) ([]byte, error) {
	n := s.Raws.Add(1)
	return []byte(fmt.Sprintf("raw-%d", n)), nil
}

// Close marks the source closed
func (s *CountingSource) Close(ctx context.Context) error {
	s.Closed.Store(true)
	return nil
}
