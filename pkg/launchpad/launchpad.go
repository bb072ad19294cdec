// Package launchpad runs a model's lifecycle phases against its configured
// connectors and model store.
//
//	cfg, err := config.Load("launchpad.yml")
//	runner, err := launchpad.New(ctx, cfg)
//	defer runner.Close(ctx)
//
//	result, err := runner.Train(ctx)
//	metrics, err := runner.Retest(ctx)
//	output, err := runner.Predict(ctx, model.Args{"petal_length": "1.4"})
//
// Connectors are built once per runner. Each phase only sees the connectors
// tagged for it.
package launchpad

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/base"
	"github.com/ajitpratap0/launchpad/pkg/connector/destinations"
	"github.com/ajitpratap0/launchpad/pkg/connector/factory"
	"github.com/ajitpratap0/launchpad/pkg/connector/provision"
	"github.com/ajitpratap0/launchpad/pkg/connector/registry"
	"github.com/ajitpratap0/launchpad/pkg/connector/sources"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/logger"
	"github.com/ajitpratap0/launchpad/pkg/metrics"
	"github.com/ajitpratap0/launchpad/pkg/model"
	"github.com/ajitpratap0/launchpad/pkg/modelstore"
	"github.com/ajitpratap0/launchpad/pkg/observability"
)

type options struct {
	registry       *registry.Registry
	plugins        *registry.Catalog
	makers         *model.Catalog
	factoryOptions []factory.Option
	storeOptions   []modelstore.Option
}

// Option configures a Runner
type Option func(*options)

// WithRegistry uses r instead of a registry of the built-in connectors
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithPlugins selects the catalog the config's plugins are taken from
func WithPlugins(c *registry.Catalog) Option {
	return func(o *options) {
		o.plugins = c
	}
}

// WithMakers selects the catalog the model maker is taken from
func WithMakers(c *model.Catalog) Option {
	return func(o *options) {
		o.makers = c
	}
}

// WithFactoryOptions passes options to connector construction
func WithFactoryOptions(opts ...factory.Option) Option {
	return func(o *options) {
		o.factoryOptions = append(o.factoryOptions, opts...)
	}
}

// WithStoreOptions passes options to the model store
func WithStoreOptions(opts ...modelstore.Option) Option {
	return func(o *options) {
		o.storeOptions = append(o.storeOptions, opts...)
	}
}

// NewRegistry returns a registry with the built-in connectors followed by
// the named plugins of catalog, in order
func NewRegistry(catalog *registry.Catalog, plugins []string) (*registry.Registry, error) {
	r := registry.New()
	sources.Register(r)
	destinations.Register(r)
	if err := r.Apply(catalog, plugins); err != nil {
		return nil, err
	}
	return r, nil
}

// OpenStore opens the model store of cfg. A relative location is resolved
// against the directory of the configuration file.
func OpenStore(cfg *config.Config, opts ...modelstore.Option) (*modelstore.Store, error) {
	location := cfg.ModelStore.Location
	if cfg.Path != "" {
		location = base.ResolvePath(filepath.Dir(cfg.Path), location)
	}
	return modelstore.New(location, opts...)
}

// Runner executes the lifecycle phases of the configured model
type Runner struct {
	cfg    *config.Config
	maker  model.Maker
	store  *modelstore.Store
	conns  *factory.Connectors
	logger *zap.Logger

	mu     sync.RWMutex
	loaded *modelstore.Stored
}

// New builds the connectors of cfg and resolves its model maker
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Runner, error) {
	o := &options{plugins: registry.Plugins, makers: model.Makers}
	for _, opt := range opts {
		opt(o)
	}

	maker, err := o.makers.Get(cfg.Model.Module)
	if err != nil {
		return nil, err
	}

	reg := o.registry
	if reg == nil {
		if reg, err = NewRegistry(o.plugins, cfg.Plugins); err != nil {
			return nil, err
		}
	}

	store, err := OpenStore(cfg, o.storeOptions...)
	if err != nil {
		return nil, err
	}

	conns, err := factory.New(ctx, reg, cfg, o.factoryOptions...)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:    cfg,
		maker:  maker,
		store:  store,
		conns:  conns,
		logger: logger.Get().With(zap.String("model", cfg.Model.Key())),
	}, nil
}

// Config returns the runner's configuration
func (r *Runner) Config() *config.Config {
	return r.cfg
}

// Store returns the model store
func (r *Runner) Store() *modelstore.Store {
	return r.store
}

// TrainOption configures Train
type TrainOption func(*trainOptions)

type trainOptions struct {
	test    bool
	persist bool
}

// SkipTest trains without running the test phase
func SkipTest() TrainOption {
	return func(o *trainOptions) {
		o.test = false
	}
}

// NoPersist trains without storing the result
func NoPersist() TrainOption {
	return func(o *trainOptions) {
		o.persist = false
	}
}

// TrainResult is a freshly trained model
type TrainResult struct {
	Contents model.Contents
	Metrics  model.Metrics
	Report   map[string]interface{}
}

// Train runs the train phase, then the test phase, and stores the model.
// The previously stored model of the same version is handed to the maker.
func (r *Runner) Train(ctx context.Context, opts ...TrainOption) (*TrainResult, error) {
	o := &trainOptions{test: true, persist: true}
	for _, opt := range opts {
		opt(o)
	}

	var old model.Contents
	prev, err := r.store.Load(r.cfg.Model)
	switch {
	case err == nil:
		old = prev.Contents
	case errors.IsType(err, errors.ErrorTypeNotFound):
		r.logger.Info("no previous model to load")
	default:
		return nil, err
	}

	report := model.NewReport()
	ctx = model.WithReport(ctx, report)
	result := &TrainResult{}

	err = r.phase(ctx, provision.PhaseTrain, func(ctx context.Context, set *provision.Set) error {
		trained, err := r.maker.Train(ctx, r.cfg.Model, set, old)
		if err != nil {
			return err
		}
		contents, err := json.Marshal(trained)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "trained model is not JSON serializable")
		}
		result.Contents = contents
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Metrics = model.Metrics{}
	if o.test {
		if result.Metrics, err = r.test(ctx, result.Contents); err != nil {
			return nil, err
		}
	}
	result.Report = report.Values()

	if o.persist {
		meta, err := r.store.Dump(r.cfg.Model, r.apiName(), result.Contents, result.Metrics, result.Report)
		if err != nil {
			return nil, err
		}
		r.setLoaded(&modelstore.Stored{Contents: result.Contents, Meta: meta})
	}

	r.logger.Info("model trained",
		zap.Bool("stored", o.persist),
		zap.Any("metrics", result.Metrics))
	return result, nil
}

// Retest runs the test phase against the stored model and records the new
// metrics in the store
func (r *Runner) Retest(ctx context.Context) (model.Metrics, error) {
	stored, err := r.model()
	if err != nil {
		return nil, err
	}
	m, err := r.test(ctx, stored.Contents)
	if err != nil {
		return nil, err
	}
	meta, err := r.store.UpdateMetrics(r.cfg.Model, m)
	if err != nil {
		return nil, err
	}
	r.setLoaded(&modelstore.Stored{Contents: stored.Contents, Meta: meta})

	r.logger.Info("model retested", zap.Any("metrics", m))
	return m, nil
}

// Predict runs the predict phase with args. It is safe for concurrent use.
func (r *Runner) Predict(ctx context.Context, args model.Args) (interface{}, error) {
	stored, err := r.model()
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = model.Args{}
	}

	var output interface{}
	err = r.phase(ctx, provision.PhasePredict, func(ctx context.Context, set *provision.Set) error {
		var err error
		output, err = r.maker.Predict(ctx, r.cfg.Model, set, stored.Contents, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

// Preload fetches every predict phase datasource once, filling the caches
func (r *Runner) Preload(ctx context.Context) error {
	return r.conns.Provision(provision.PhasePredict).Preload(ctx)
}

// Health returns the failing connectors keyed by name
func (r *Runner) Health(ctx context.Context) map[string]error {
	return r.conns.Health(ctx)
}

// Model returns the metadata of the stored model
func (r *Runner) Model() (*modelstore.Metadata, error) {
	stored, err := r.model()
	if err != nil {
		return nil, err
	}
	return stored.Meta, nil
}

// Close releases all connectors
func (r *Runner) Close(ctx context.Context) error {
	return r.conns.Close(ctx)
}

func (r *Runner) test(ctx context.Context, contents model.Contents) (model.Metrics, error) {
	var m model.Metrics
	err := r.phase(ctx, provision.PhaseTest, func(ctx context.Context, set *provision.Set) error {
		var err error
		m, err = r.maker.Test(ctx, r.cfg.Model, set, contents)
		return err
	})
	if m == nil {
		m = model.Metrics{}
	}
	return m, err
}

// phase runs fn with the connectors of phase, recording metrics and a span
func (r *Runner) phase(ctx context.Context, phase provision.Phase, fn func(context.Context, *provision.Set) error) error {
	name := r.cfg.Model.Name
	ctx, span := observability.Tracer().Start(ctx, "launchpad."+phase.String(),
		trace.WithAttributes(
			attribute.String("model.name", name),
			attribute.String("model.version", r.cfg.Model.Version),
		))
	defer span.End()

	timer := metrics.NewTimer(phase.String())
	err := fn(ctx, r.conns.Provision(phase))
	metrics.PhaseLatency.WithLabelValues(name, phase.String()).Observe(timer.Stop().Seconds())
	metrics.PhaseRuns.WithLabelValues(name, phase.String(), metrics.Status(err)).Inc()
	observability.RecordOutcome(span, err)

	if err != nil {
		r.logger.Error("phase failed", zap.String("phase", phase.String()), zap.Error(err))
		return err
	}
	r.logger.Debug("phase completed", zap.String("phase", phase.String()))
	return nil
}

// model returns the stored model, loading it on first use
func (r *Runner) model() (*modelstore.Stored, error) {
	r.mu.RLock()
	stored := r.loaded
	r.mu.RUnlock()
	if stored != nil {
		return stored, nil
	}

	stored, err := r.store.Load(r.cfg.Model)
	if err != nil {
		return nil, err
	}
	r.setLoaded(stored)
	return stored, nil
}

func (r *Runner) setLoaded(s *modelstore.Stored) {
	r.mu.Lock()
	r.loaded = s
	r.mu.Unlock()
}

func (r *Runner) apiName() string {
	if r.cfg.API == nil {
		return ""
	}
	return r.cfg.API.Name
}

// Report adds information to the train report of the training run carried
// by ctx. Frames are summarized. Outside of training the call only logs.
func Report(ctx context.Context, name string, value interface{}) {
	model.AddToReport(ctx, name, value)
}
