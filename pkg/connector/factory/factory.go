// Package factory builds the configured datasources and datasinks.
//
// Every connector is validated before anything is constructed: it must
// declare "expires" (-1 or more) and at least one valid tag, a non-empty
// type, and "dbms.<name>" types must reference an existing dbms block. The
// implementation is then resolved through a registry, using "dbms.<block
// type>" for database connectors, and every datasource is wrapped in a cache.
//
// Construction fails on the first error; connectors that were already built
// are closed again.
package factory

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/cache"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/connector/provision"
	"github.com/ajitpratap0/launchpad/pkg/connector/registry"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/logger"
)

// DBMSPrefix is the main type of connectors referencing a dbms block
const DBMSPrefix = "dbms"

type options struct {
	baseDir string
	clock   func() time.Time
}

// Option configures New
type Option func(*options)

// WithBaseDir sets the directory relative paths are resolved against. It
// defaults to the directory of the configuration file.
func WithBaseDir(dir string) Option {
	return func(o *options) {
		o.baseDir = dir
	}
}

// WithClock replaces the clock of every datasource cache
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// Connectors holds every constructed connector
type Connectors struct {
	sources []provision.Entry[core.DataSource]
	sinks   []provision.Entry[core.DataSink]
	logger  *zap.Logger
}

// New validates and constructs every datasource and datasink of cfg
func New(ctx context.Context, reg *registry.Registry, cfg *config.Config, opts ...Option) (*Connectors, error) {
	o := &options{}
	if cfg.Path != "" {
		o.baseDir = filepath.Dir(cfg.Path)
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	c := &Connectors{logger: logger.Get().With(zap.String("component", "connector_factory"))}

	for _, name := range cfg.SourceNames() {
		src, err := c.buildSource(ctx, reg, cfg, cfg.DataSources[name], o)
		if err != nil {
			c.abort(ctx)
			return nil, err
		}
		c.sources = append(c.sources, provision.Entry[core.DataSource]{
			Name: name, Tags: cfg.DataSources[name].Tags, Connector: src,
		})
	}

	for _, name := range cfg.SinkNames() {
		sink, err := c.buildSink(ctx, reg, cfg, cfg.DataSinks[name], o)
		if err != nil {
			c.abort(ctx)
			return nil, err
		}
		c.sinks = append(c.sinks, provision.Entry[core.DataSink]{
			Name: name, Tags: cfg.DataSinks[name].Tags, Connector: sink,
		})
	}

	c.logger.Info("connectors built",
		zap.Int("datasources", len(c.sources)),
		zap.Int("datasinks", len(c.sinks)))
	return c, nil
}

func (c *Connectors) buildSource(ctx context.Context, reg *registry.Registry, cfg *config.Config, cc config.ConnectorConfig, o *options) (core.DataSource, error) {
	spec, key := specFor(cfg, cc, o.baseDir)
	factory, err := reg.ResolveSource(key)
	if err != nil {
		return nil, annotate(err, cc, key)
	}
	src, err := factory(ctx, spec)
	if err != nil {
		return nil, annotate(err, cc, key)
	}

	var cacheOpts []cache.Option
	if o.clock != nil {
		cacheOpts = append(cacheOpts, cache.WithClock(o.clock))
	}
	cached, err := cache.Wrap(cc.Name, src, cache.PolicyFor(cc), cacheOpts...)
	if err != nil {
		_ = src.Close(ctx)
		return nil, err
	}

	c.logger.Debug("datasource built",
		zap.String("connector", cc.Name),
		zap.String("type", key),
		zap.Int("expires", cc.TTL()))
	return cached, nil
}

func (c *Connectors) buildSink(ctx context.Context, reg *registry.Registry, cfg *config.Config, cc config.ConnectorConfig, o *options) (core.DataSink, error) {
	spec, key := specFor(cfg, cc, o.baseDir)
	factory, err := reg.ResolveSink(key)
	if err != nil {
		return nil, annotate(err, cc, key)
	}
	sink, err := factory(ctx, spec)
	if err != nil {
		return nil, annotate(err, cc, key)
	}

	c.logger.Debug("datasink built", zap.String("connector", cc.Name), zap.String("type", key))
	return sink, nil
}

// specFor returns the construction spec and the registry key of a validated connector
func specFor(cfg *config.Config, cc config.ConnectorConfig, baseDir string) (core.Spec, string) {
	spec := core.Spec{Connector: cc, BaseDir: baseDir}
	if cc.MainType() != DBMSPrefix {
		return spec, cc.Type
	}
	block := cfg.DBMS[cc.SubType()]
	block.Name = cc.SubType()
	spec.DBMS = &block
	return spec, DBMSPrefix + "." + block.Type
}

// ImplementationType returns the registry key a connector resolves to
func ImplementationType(cfg *config.Config, cc config.ConnectorConfig) string {
	_, key := specFor(cfg, cc, "")
	return key
}

// annotate names the connector in err, keeping the error type of the cause
func annotate(err error, cc config.ConnectorConfig, key string) error {
	errType := errors.ErrorTypeConfig
	var e *errors.Error
	if errors.As(err, &e) {
		errType = e.Type
	}
	return errors.Wrap(err, errType, fmt.Sprintf("connector '%s' of type '%s'", cc.Name, key)).
		WithDetail("connector", cc.Name).
		WithDetail("type", key)
}

func (c *Connectors) abort(ctx context.Context) {
	if err := c.Close(ctx); err != nil {
		c.logger.Warn("failed to close connectors after construction error", zap.Error(err))
	}
}

// Provision returns the connectors tagged for phase
func (c *Connectors) Provision(phase provision.Phase) *provision.Set {
	return provision.New(phase, c.sources, c.sinks)
}

// SourceNames lists the datasources in sorted order
func (c *Connectors) SourceNames() []string {
	names := make([]string, len(c.sources))
	for i, e := range c.sources {
		names[i] = e.Name
	}
	return names
}

// SinkNames lists the datasinks in sorted order
func (c *Connectors) SinkNames() []string {
	names := make([]string, len(c.sinks))
	for i, e := range c.sinks {
		names[i] = e.Name
	}
	return names
}

// Health checks every connector that supports it and returns the failures
// keyed by connector name
func (c *Connectors) Health(ctx context.Context) map[string]error {
	failed := map[string]error{}
	for _, e := range c.sources {
		if hc, ok := e.Connector.(core.HealthChecker); ok {
			if err := hc.Health(ctx); err != nil {
				failed[e.Name] = err
			}
		}
	}
	for _, e := range c.sinks {
		if hc, ok := e.Connector.(core.HealthChecker); ok {
			if err := hc.Health(ctx); err != nil {
				failed[e.Name] = err
			}
		}
	}
	return failed
}

// Close closes every connector, purging datasource caches. All connectors
// are closed even when some fail; the failures are joined.
func (c *Connectors) Close(ctx context.Context) error {
	var errs []error
	for _, e := range c.sources {
		if err := e.Connector.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("datasource %s: %w", e.Name, err))
		}
	}
	for _, e := range c.sinks {
		if err := e.Connector.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("datasink %s: %w", e.Name, err))
		}
	}
	c.sources, c.sinks = nil, nil
	return errors.Join(errs...)
}
