// Package registry maps connector type strings to the factories that build them.
//
// A Registry is constructed explicitly and handed to whatever builds connectors.
// Registration is last-write-wins: registering a type a second time replaces the
// earlier factory for all later resolutions, with a warning naming the shadowed type.
// Connectors that were already built are not affected.
package registry

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/logger"
)

// Registry manages connector registration and resolution
type Registry struct {
	sources   map[string]core.SourceFactory
	sinks     map[string]core.SinkFactory
	sourceSeq []string
	sinkSeq   []string
	mu        sync.RWMutex
	logger    *zap.Logger
}

// New creates an empty connector registry
func New() *Registry {
	return &Registry{
		sources: make(map[string]core.SourceFactory),
		sinks:   make(map[string]core.SinkFactory),
		logger:  logger.Get().With(zap.String("component", "connector_registry")),
	}
}

// RegisterSource registers a datasource factory for typ, replacing any earlier one
func (r *Registry) RegisterSource(typ string, factory core.SourceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[typ]; exists {
		r.logger.Warn("datasource type overridden by later registration", zap.String("type", typ))
	} else {
		r.sourceSeq = append(r.sourceSeq, typ)
	}
	r.sources[typ] = factory
	r.logger.Debug("datasource type registered", zap.String("type", typ))
}

// RegisterSink registers a datasink factory for typ, replacing any earlier one
func (r *Registry) RegisterSink(typ string, factory core.SinkFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sinks[typ]; exists {
		r.logger.Warn("datasink type overridden by later registration", zap.String("type", typ))
	} else {
		r.sinkSeq = append(r.sinkSeq, typ)
	}
	r.sinks[typ] = factory
	r.logger.Debug("datasink type registered", zap.String("type", typ))
}

// ResolveSource returns the datasource factory registered for typ
func (r *Registry) ResolveSource(typ string) (core.SourceFactory, error) {
	r.mu.RLock()
	factory, exists := r.sources[typ]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeLookup, fmt.Sprintf("no datasource implementation registered for type %q", typ)).
			WithDetail("type", typ)
	}
	return factory, nil
}

// ResolveSink returns the datasink factory registered for typ
func (r *Registry) ResolveSink(typ string) (core.SinkFactory, error) {
	r.mu.RLock()
	factory, exists := r.sinks[typ]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeLookup, fmt.Sprintf("no datasink implementation registered for type %q", typ)).
			WithDetail("type", typ)
	}
	return factory, nil
}

// HasSource checks if a datasource type is registered
func (r *Registry) HasSource(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.sources[typ]
	return exists
}

// HasSink checks if a datasink type is registered
func (r *Registry) HasSink(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.sinks[typ]
	return exists
}

// SourceTypes returns the registered datasource types in first-registration order
func (r *Registry) SourceTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.sourceSeq...)
}

// SinkTypes returns the registered datasink types in first-registration order
func (r *Registry) SinkTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.sinkSeq...)
}
