// Package api serves model predictions over HTTP.
//
// The prediction resource lives at
//
//	<root_path>/<api.name>/v<major model version>/<api.resource>
//
// and accepts GET with query arguments, or POST with form, multipart or JSON
// object bodies. /healthz reports connector health and /metrics exposes
// Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/launchpad"
	"github.com/ajitpratap0/launchpad/pkg/logger"
	"github.com/ajitpratap0/launchpad/pkg/metrics"
	"github.com/ajitpratap0/launchpad/pkg/model"
)

// Builder creates a runner from the current configuration, used on reload
type Builder func(ctx context.Context) (*launchpad.Runner, error)

// Option configures a Server
type Option func(*Server)

// WithBuilder enables Reload
func WithBuilder(b Builder) Option {
	return func(s *Server) {
		s.build = b
	}
}

// Server is the prediction API
type Server struct {
	echo   *echo.Echo
	route  string
	build  Builder
	logger *zap.Logger

	mu      sync.RWMutex
	current *lease
}

// lease tracks the requests using a runner so that a replaced runner is
// closed only after they finish
type lease struct {
	runner *launchpad.Runner
	active sync.WaitGroup
}

// Route returns the path of the prediction resource
func Route(cfg *config.Config) (string, error) {
	if cfg.API == nil || cfg.API.Name == "" {
		return "", errors.New(errors.ErrorTypeConfig, "missing key in config file: api:name")
	}
	resource := cfg.API.Resource
	if resource == "" {
		resource = cfg.Model.Name
	}
	return path.Join("/", cfg.API.RootPath, cfg.API.Name, "v"+majorVersion(cfg.Model.Version), resource), nil
}

func majorVersion(version string) string {
	if v, err := semver.NewVersion(version); err == nil {
		return fmt.Sprint(v.Major())
	}
	major, _, _ := strings.Cut(version, ".")
	return major
}

// New creates the API for runner. With api.preload_datasources set, the
// predict phase datasources are fetched before the server is returned.
func New(ctx context.Context, runner *launchpad.Runner, opts ...Option) (*Server, error) {
	cfg := runner.Config()
	route, err := Route(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		echo:   echo.New(),
		route:   route,
		current: &lease{runner: runner},
		logger:  logger.Get().With(zap.String("component", "api")),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.API.PreloadDataSources {
		if err := runner.Preload(ctx); err != nil {
			return nil, err
		}
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.observe)

	s.echo.GET(route, s.predict)
	s.echo.POST(route, s.predict)
	s.echo.GET("/healthz", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.logger.Info("prediction resource registered", zap.String("route", route))
	return s, nil
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Route returns the path of the prediction resource
func (s *Server) Route() string {
	return s.route
}

// Runner returns the runner currently serving requests
func (s *Server) Runner() *launchpad.Runner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.runner
}

// acquire returns the current runner and a release func. The runner is not
// closed by Reload before release is called.
func (s *Server) acquire() (*launchpad.Runner, func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := s.current
	l.active.Add(1)
	return l.runner, l.active.Done
}

// Start serves on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.logger.Info("serving predictions", zap.String("addr", addr), zap.String("route", s.route))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, errors.ErrorTypeConnection, "api server failed").WithDetail("addr", addr)
	}
	return nil
}

// Shutdown stops the server and closes the runner
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	return errors.Join(err, s.Runner().Close(ctx))
}

// Reload builds a new runner and swaps it in. With api.preload_datasources
// set, the new runner is preloaded first and a failed preload keeps the
// current runner. The previous runner is closed once the requests using it
// have finished, or when ctx is done. A changed route needs a restart.
func (s *Server) Reload(ctx context.Context) error {
	if s.build == nil {
		return errors.New(errors.ErrorTypeCapability, "reload is not configured")
	}
	next, err := s.build(ctx)
	if err != nil {
		return err
	}
	cfg := next.Config()
	if route, err := Route(cfg); err == nil && route != s.route {
		s.logger.Warn("prediction route changed, restart to serve it",
			zap.String("current", s.route),
			zap.String("configured", route))
	}
	if cfg.API != nil && cfg.API.PreloadDataSources {
		if err := next.Preload(ctx); err != nil {
			return errors.Join(err, next.Close(ctx))
		}
	}

	s.mu.Lock()
	prev := s.current
	s.current = &lease{runner: next}
	s.mu.Unlock()
	s.logger.Info("configuration reloaded")

	drained := make(chan struct{})
	go func() {
		prev.active.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		s.logger.Warn("closing previous runner with requests in flight", zap.Error(ctx.Err()))
	}
	return prev.runner.Close(ctx)
}

func (s *Server) predict(c echo.Context) error {
	args, err := requestArgs(c)
	if err != nil {
		return err
	}
	runner, release := s.acquire()
	defer release()
	out, err := runner.Predict(c.Request().Context(), args)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// requestArgs merges query parameters with the form or JSON body
func requestArgs(c echo.Context) (model.Args, error) {
	args := model.Args{}
	for k, v := range c.QueryParams() {
		if len(v) > 0 {
			args[k] = v[0]
		}
	}
	req := c.Request()
	if req.Method != http.MethodPost {
		return args, nil
	}

	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		body := map[string]interface{}{}
		if err := c.Bind(&body); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
		}
		for k, v := range body {
			s, err := cast.ToStringE(v)
			if err != nil {
				return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("argument %q must be a scalar", k))
			}
			args[k] = s
		}
		return args, nil
	}

	form, err := c.FormParams()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid form body")
	}
	for k, v := range form {
		if len(v) > 0 {
			args[k] = v[0]
		}
	}
	return args, nil
}

func (s *Server) health(c echo.Context) error {
	runner, release := s.acquire()
	defer release()
	failed := runner.Health(c.Request().Context())
	if len(failed) == 0 {
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok"})
	}
	details := make(map[string]string, len(failed))
	for name, err := range failed {
		details[name] = err.Error()
	}
	return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{"status": "unhealthy", "connectors": details})
}

// statusFor maps error types to HTTP status codes
func statusFor(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	var e *errors.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Type {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeCapability:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := statusFor(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Request().URL.Path), zap.Error(err))
	}
	if err := c.JSON(code, map[string]string{"error": msg}); err != nil {
		s.logger.Warn("failed to write error response", zap.Error(err))
	}
}

// observe logs request latency and counts requests by status class
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		begin := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		req := c.Request()
		status := c.Response().Status
		metrics.APIRequests.WithLabelValues(req.Method, fmt.Sprintf("%dxx", status/100)).Inc()
		s.logger.Debug("request served",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(begin)))
		return nil
	}
}
