// Package provision hands model code the connectors tagged for one lifecycle phase.
//
// A Set only ever contains the connectors whose tags include its phase; the
// remaining connectors are not reachable through it.
package provision

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/logger"
)

// Phase is a model lifecycle phase
type Phase string

const (
	PhaseTrain   Phase = config.TagTrain
	PhaseTest    Phase = config.TagTest
	PhasePredict Phase = config.TagPredict
)

// ParsePhase converts a tag name into a Phase
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseTrain, PhaseTest, PhasePredict:
		return Phase(s), nil
	}
	return "", errors.Newf(errors.ErrorTypeValidation, "unknown lifecycle phase %q, expected one of %v", s, config.ValidTags)
}

// String returns the phase name
func (p Phase) String() string {
	return string(p)
}

// Entry is a constructed connector together with its tags
type Entry[T any] struct {
	Name      string
	Tags      config.Tags
	Connector T
}

// Set is the name-keyed view of the connectors visible in one phase
type Set struct {
	phase   Phase
	sources map[string]core.DataSource
	sinks   map[string]core.DataSink
}

// New returns the set of connectors among sources and sinks tagged for phase
func New(phase Phase, sources []Entry[core.DataSource], sinks []Entry[core.DataSink]) *Set {
	s := &Set{
		phase:   phase,
		sources: make(map[string]core.DataSource),
		sinks:   make(map[string]core.DataSink),
	}
	for _, e := range sources {
		if e.Tags.Has(string(phase)) {
			s.sources[e.Name] = e.Connector
		}
	}
	for _, e := range sinks {
		if e.Tags.Has(string(phase)) {
			s.sinks[e.Name] = e.Connector
		}
	}
	return s
}

// Phase returns the lifecycle phase of the set
func (s *Set) Phase() Phase {
	return s.phase
}

// Source returns the datasource called name
func (s *Set) Source(name string) (core.DataSource, error) {
	src, ok := s.sources[name]
	if !ok {
		return nil, errors.New(errors.ErrorTypeNotFound,
			fmt.Sprintf("datasource '%s' is not available in phase %s", name, s.phase)).
			WithDetail("connector", name)
	}
	return src, nil
}

// Sink returns the datasink called name
func (s *Set) Sink(name string) (core.DataSink, error) {
	sink, ok := s.sinks[name]
	if !ok {
		return nil, errors.New(errors.ErrorTypeNotFound,
			fmt.Sprintf("datasink '%s' is not available in phase %s", name, s.phase)).
			WithDetail("connector", name)
	}
	return sink, nil
}

// SourceNames lists the visible datasources in sorted order
func (s *Set) SourceNames() []string {
	names := make([]string, 0, len(s.sources))
	for name := range s.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SinkNames lists the visible datasinks in sorted order
func (s *Set) SinkNames() []string {
	names := make([]string, 0, len(s.sinks))
	for name := range s.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preload fetches the frame of every visible datasource without parameters,
// filling caches before the first request arrives.
func (s *Set) Preload(ctx context.Context) error {
	for _, name := range s.SourceNames() {
		if _, err := s.sources[name].GetFrame(ctx, nil); err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, fmt.Sprintf("failed to preload datasource '%s'", name)).
				WithDetail("connector", name)
		}
		logger.Debug("datasource preloaded", zap.String("connector", name))
	}
	return nil
}
