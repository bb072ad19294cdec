// Package cache memoizes datasource fetches per call parameters.
//
// The expiry policy follows the connector's "expires" setting:
//
//	-1  a fetched value never expires
//	 0  every call fetches again, nothing is stored
//	 N  a fetched value is served for N seconds
//
// Frame and raw fetches are cached independently, and so is every distinct
// parameter set. The number of cached parameter sets is bounded; the least
// recently used entry is evicted first. Errors are never cached.
//
// Concurrent fetches for the same key are de-duplicated: one caller performs
// the underlying fetch and the others wait for its result. The shared fetch
// is not cancelled with the caller that started it; a caller whose context
// ends stops waiting and the fetch completes for the rest. Fetches for
// different keys run independently.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/logger"
	"github.com/ajitpratap0/launchpad/pkg/metrics"
	"github.com/ajitpratap0/launchpad/pkg/observability"
)

// Never marks values that never expire
const Never = -1

// Call kinds
const (
	KindFrame = "frame"
	KindRaw   = "raw"
)

// Policy controls caching for one datasource
type Policy struct {
	// TTL in seconds: -1 never expires, 0 disables caching
	TTL int
	// Size bounds the number of cached parameter sets
	Size int
}

// PolicyFor returns the cache policy configured for a connector
func PolicyFor(cfg config.ConnectorConfig) Policy {
	return Policy{TTL: cfg.TTL(), Size: cfg.MaxEntries()}
}

type entry struct {
	value   interface{}
	fetched time.Time
}

// Option configures a cached source
type Option func(*Source)

// WithClock replaces the clock used for expiry decisions
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		s.now = now
	}
}

// Source wraps a datasource with a cache. It is safe for concurrent use.
type Source struct {
	name    string
	inner   core.DataSource
	policy  Policy
	now     func() time.Time
	entries *lru.Cache[string, *entry]
	group   singleflight.Group
	tracer  *observability.ConnectorTracer
	logger  *zap.Logger
	closed  atomic.Bool
}

var _ core.DataSource = (*Source)(nil)

// Wrap returns src wrapped in a cache governed by policy
func Wrap(name string, src core.DataSource, policy Policy, opts ...Option) (*Source, error) {
	if policy.TTL < Never {
		return nil, errors.Newf(errors.ErrorTypeConfig, "datasource '%s': expires must be -1, 0 or positive, got %d", name, policy.TTL).
			WithDetail("connector", name)
	}
	if policy.Size <= 0 {
		policy.Size = config.DefaultCacheSize
	}

	entries, err := lru.New[string, *entry](policy.Size)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create cache").
			WithDetail("connector", name)
	}

	s := &Source{
		name:    name,
		inner:   src,
		policy:  policy,
		now:     time.Now,
		entries: entries,
		tracer:  observability.NewConnectorTracer("datasource", name),
		logger:  logger.Get().With(zap.String("component", "cache"), zap.String("connector", name)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the datasource name
func (s *Source) Name() string {
	return s.name
}

// Policy returns the cache policy
func (s *Source) Policy() Policy {
	return s.policy
}

// Unwrap returns the underlying datasource
func (s *Source) Unwrap() core.DataSource {
	return s.inner
}

// Len returns the number of cached entries, expired ones included
func (s *Source) Len() int {
	return s.entries.Len()
}

// GetFrame returns the cached frame for params, fetching it if needed
func (s *Source) GetFrame(ctx context.Context, params core.Params) (*core.Frame, error) {
	v, err := s.get(ctx, KindFrame, params, func(ctx context.Context) (interface{}, error) {
		return s.inner.GetFrame(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.Frame), nil
}

// GetRaw returns the cached raw data for params, fetching it if needed
func (s *Source) GetRaw(ctx context.Context, params core.Params) ([]byte, error) {
	v, err := s.get(ctx, KindRaw, params, func(ctx context.Context) (interface{}, error) {
		return s.inner.GetRaw(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Health delegates to the underlying datasource when it supports health checks
func (s *Source) Health(ctx context.Context) error {
	if hc, ok := s.inner.(core.HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}

// Purge drops all cached entries
func (s *Source) Purge() {
	s.entries.Purge()
}

// Close purges the cache and closes the underlying datasource
func (s *Source) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.entries.Purge()
	return s.inner.Close(ctx)
}

type fetchFunc func(ctx context.Context) (interface{}, error)

func (s *Source) get(ctx context.Context, kind string, params core.Params, fetch fetchFunc) (interface{}, error) {
	if s.closed.Load() {
		return nil, errors.Newf(errors.ErrorTypeInternal, "datasource '%s' is closed", s.name).
			WithDetail("connector", s.name)
	}

	if s.policy.TTL == 0 {
		metrics.CacheRequests.WithLabelValues(s.name, kind, metrics.OutcomeBypass).Inc()
		return s.fetch(ctx, kind, fetch)
	}

	key, err := Key(kind, params)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "parameters cannot be used as a cache key").
			WithDetail("connector", s.name)
	}

	if v, ok := s.lookup(key); ok {
		metrics.CacheRequests.WithLabelValues(s.name, kind, metrics.OutcomeHit).Inc()
		return v, nil
	}
	metrics.CacheRequests.WithLabelValues(s.name, kind, metrics.OutcomeMiss).Inc()

	ch := s.group.DoChan(key, func() (interface{}, error) {
		// a concurrent flight may have stored the value after our lookup
		if v, ok := s.lookup(key); ok {
			return v, nil
		}
		// the fetch outlives the caller that started it
		v, err := s.fetch(context.WithoutCancel(ctx), kind, fetch)
		if err != nil {
			return nil, err
		}
		s.store(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Source) lookup(key string) (interface{}, bool) {
	e, ok := s.entries.Get(key)
	if !ok {
		return nil, false
	}
	if s.policy.TTL == Never {
		return e.value, true
	}
	if s.now().Before(e.fetched.Add(time.Duration(s.policy.TTL) * time.Second)) {
		return e.value, true
	}
	s.entries.Remove(key)
	return nil, false
}

func (s *Source) store(key string, v interface{}) {
	if evicted := s.entries.Add(key, &entry{value: v, fetched: s.now()}); evicted {
		metrics.CacheEvictions.WithLabelValues(s.name).Inc()
		s.logger.Debug("cache entry evicted", zap.Int("size", s.policy.Size))
	}
}

func (s *Source) fetch(ctx context.Context, kind string, fetch fetchFunc) (interface{}, error) {
	timer := metrics.NewTimer(s.name)
	var v interface{}
	err := s.tracer.Trace(ctx, "get_"+kind, func(ctx context.Context) error {
		var err error
		v, err = fetch(ctx)
		return err
	}, attribute.String("cache.kind", kind))
	metrics.FetchLatency.WithLabelValues(s.name, kind).Observe(timer.Stop().Seconds())

	if err != nil {
		metrics.FetchErrors.WithLabelValues(s.name, kind).Inc()
		s.logger.Debug("fetch failed", zap.String("kind", kind), zap.Error(err))
		return nil, err
	}
	return v, nil
}

// Key returns the canonical cache key for a call. Parameter maps are encoded
// as JSON with sorted keys, so equal parameter sets always share a key.
// Identity is by JSON value: {"id": 1} and {"id": 1.0} share a key, as do
// a []string and an []interface{} holding the same strings.
func Key(kind string, params core.Params) (string, error) {
	if len(params) == 0 {
		return kind + ":{}", nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return kind + ":" + string(data), nil
}
