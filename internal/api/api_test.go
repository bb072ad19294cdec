package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/provision"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/launchpad"
	"github.com/ajitpratap0/launchpad/pkg/model"
	"github.com/ajitpratap0/launchpad/pkg/testutil"
)

// echoMaker echoes argument x. With a "rows" argument it instead counts the
// rows of the numbers datasource, after signalling started and waiting delay.
type echoMaker struct {
	delay   time.Duration
	started chan struct{}
}

func (echoMaker) Train(ctx context.Context, conf config.ModelConfig, set *provision.Set, old model.Contents) (interface{}, error) {
	return map[string]int{"k": 2}, nil
}

func (echoMaker) Test(ctx context.Context, conf config.ModelConfig, set *provision.Set, contents model.Contents) (model.Metrics, error) {
	return model.Metrics{}, nil
}

func (m echoMaker) Predict(ctx context.Context, conf config.ModelConfig, set *provision.Set, contents model.Contents, args model.Args) (interface{}, error) {
	if args["rows"] != "" {
		return m.countRows(ctx, set)
	}
	if args["x"] == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "argument x is required")
	}
	return map[string]string{"x": args["x"], "model": string(contents)}, nil
}

func (m echoMaker) countRows(ctx context.Context, set *provision.Set) (interface{}, error) {
	if m.started != nil {
		m.started <- struct{}{}
	}
	select {
	case <-time.After(m.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	src, err := set.Source("numbers")
	if err != nil {
		return nil, err
	}
	frame, err := src.GetFrame(ctx, nil)
	if err != nil {
		return nil, err
	}
	return map[string]int{"rows": frame.Len()}, nil
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		DataSources: map[string]config.ConnectorConfig{
			"numbers": {Name: "numbers", Type: "csv", Path: "numbers.csv", Expires: testutil.IntPtr(-1), Tags: config.Tags{"predict"}},
		},
		ModelStore: config.ModelStoreConfig{Location: filepath.Join(dir, "models")},
		Model:      config.ModelConfig{Name: "echo", Version: "2.1.0", Module: "echo"},
		API:        &config.APIConfig{Name: "echo_api", Resource: "answers", PreloadDataSources: true},
		Path:       filepath.Join(dir, "launchpad.yml"),
	}
}

func buildRunner(ctx context.Context, dir string) (*launchpad.Runner, error) {
	return buildRunnerWith(ctx, dir, echoMaker{})
}

func buildRunnerWith(ctx context.Context, dir string, maker model.Maker) (*launchpad.Runner, error) {
	catalog := model.NewCatalog()
	catalog.Register("echo", maker)
	return launchpad.New(ctx, testConfig(dir), launchpad.WithMakers(catalog))
}

func newServer(t *testing.T, opts ...Option) (*Server, string) {
	return newServerWith(t, echoMaker{}, opts...)
}

func newServerWith(t *testing.T, maker model.Maker, opts ...Option) (*Server, string) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "numbers.csv", "x\n1\n")

	runner, err := buildRunnerWith(context.Background(), dir, maker)
	require.NoError(t, err)
	_, err = runner.Train(context.Background())
	require.NoError(t, err)

	s, err := New(context.Background(), runner, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Runner().Close(context.Background()) })
	return s, dir
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name string
		api  *config.APIConfig
		ver  string
		want string
	}{
		{"resource", &config.APIConfig{Name: "iris", Resource: "varieties"}, "1.2.3", "/iris/v1/varieties"},
		{"default resource", &config.APIConfig{Name: "iris"}, "0.0.1", "/iris/v0/iris"},
		{"root path", &config.APIConfig{Name: "iris", Resource: "r", RootPath: "/models"}, "3.0", "/models/iris/v3/r"},
		{"non semver", &config.APIConfig{Name: "iris", Resource: "r"}, "2024.05-beta", "/iris/v2024/r"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, err := Route(&config.Config{API: tt.api, Model: config.ModelConfig{Name: "iris", Version: tt.ver}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, route)
		})
	}

	_, err := Route(&config.Config{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestPredictGet(t *testing.T) {
	s, _ := newServer(t)
	assert.Equal(t, "/echo_api/v2/answers", s.Route())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/echo_api/v2/answers?x=42", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"x":"42","model":"{\"k\":2}"}`, rec.Body.String())
}

func TestPredictPost(t *testing.T) {
	s, _ := newServer(t)

	form := url.Values{"x": {"form"}}
	req := httptest.NewRequest(http.MethodPost, "/echo_api/v2/answers", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"x":"form"`)

	req = httptest.NewRequest(http.MethodPost, "/echo_api/v2/answers", strings.NewReader(`{"x": 7}`))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"x":"7"`)

	req = httptest.NewRequest(http.MethodPost, "/echo_api/v2/answers", strings.NewReader(`{"x": [1]}`))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictErrors(t *testing.T) {
	s, _ := newServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/echo_api/v2/answers", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "argument x is required")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/echo_api/v1/answers", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s, dir := newServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, os.Remove(filepath.Join(dir, "numbers.csv")))
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "numbers")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "launchpad_api_requests_total")
}

func TestReload(t *testing.T) {
	var builds int32
	var dir string
	s, dir := newServer(t, WithBuilder(func(ctx context.Context) (*launchpad.Runner, error) {
		atomic.AddInt32(&builds, 1)
		return buildRunner(ctx, dir)
	}))

	first := s.Runner()
	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&builds))
	assert.NotSame(t, first, s.Runner())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/echo_api/v2/answers?x=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReloadPreloadsDataSources(t *testing.T) {
	var dir string
	s, dir := newServer(t, WithBuilder(func(ctx context.Context) (*launchpad.Runner, error) {
		return buildRunner(ctx, dir)
	}))
	first := s.Runner()

	require.NoError(t, s.Reload(context.Background()))
	require.NotSame(t, first, s.Runner())

	// served from the cache filled by preloading
	require.NoError(t, os.Remove(filepath.Join(dir, "numbers.csv")))
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/echo_api/v2/answers?rows=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rows":1}`, rec.Body.String())
}

func TestReloadKeepsRunnerWhenPreloadFails(t *testing.T) {
	var dir string
	s, dir := newServer(t, WithBuilder(func(ctx context.Context) (*launchpad.Runner, error) {
		return buildRunner(ctx, dir)
	}))
	first := s.Runner()

	require.NoError(t, os.Remove(filepath.Join(dir, "numbers.csv")))
	err := s.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to preload datasource 'numbers'")
	assert.Same(t, first, s.Runner())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/echo_api/v2/answers?rows=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReloadDrainsInFlightRequests(t *testing.T) {
	started := make(chan struct{}, 1)
	var dir string
	s, dir := newServerWith(t, echoMaker{delay: 150 * time.Millisecond, started: started},
		WithBuilder(func(ctx context.Context) (*launchpad.Runner, error) {
			return buildRunner(ctx, dir)
		}))
	first := s.Runner()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- serve(s, httptest.NewRequest(http.MethodGet, "/echo_api/v2/answers?rows=1", nil))
	}()
	<-started

	require.NoError(t, s.Reload(context.Background()))
	assert.NotSame(t, first, s.Runner())

	rec := <-done
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"rows":1}`, rec.Body.String())

	// the replaced runner is closed once the request finished
	_, err := first.Predict(context.Background(), model.Args{"rows": "1"})
	assert.Error(t, err)
}

func TestReloadWithoutBuilder(t *testing.T) {
	s, _ := newServer(t)
	err := s.Reload(context.Background())
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
}

func TestWatch(t *testing.T) {
	var builds int32
	var dir string
	s, dir := newServer(t, WithBuilder(func(ctx context.Context) (*launchpad.Runner, error) {
		atomic.AddInt32(&builds, 1)
		return buildRunner(ctx, dir)
	}))

	cfgPath := filepath.Join(dir, "launchpad.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("model: {}\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Watch(ctx, cfgPath))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(cfgPath, []byte("model: {name: echo}\n"), 0o600))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&builds) >= 1
	}, 5*time.Second, 20*time.Millisecond)
}
