// Package model defines the interface model code implements and the catalog
// that makes model implementations selectable by the "model.module" setting.
//
// A model package registers its Maker from init:
//
//	func init() {
//		model.Register("iris", &IrisMaker{})
//	}
//
// and is compiled into the binary with a blank import. The trained model is
// any JSON-serializable value; it is stored as JSON and handed back to Test
// and Predict as raw JSON.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/provision"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// Contents is a trained model serialized as JSON
type Contents = json.RawMessage

// Metrics are the test results of a trained model, e.g. {"accuracy": 0.97}
type Metrics map[string]interface{}

// Args are the prediction arguments, usually taken from an API request
type Args map[string]string

// Maker trains, tests and applies one kind of model
type Maker interface {
	// Train creates a trained model from the train phase connectors. old is
	// the previously stored model of the same version, nil if there is none.
	Train(ctx context.Context, conf config.ModelConfig, set *provision.Set, old Contents) (interface{}, error)
	// Test computes metrics of a trained model from the test phase connectors
	Test(ctx context.Context, conf config.ModelConfig, set *provision.Set, contents Contents) (Metrics, error)
	// Predict applies a trained model using the predict phase connectors
	Predict(ctx context.Context, conf config.ModelConfig, set *provision.Set, contents Contents, args Args) (interface{}, error)
}

// Catalog holds model makers by module name
type Catalog struct {
	makers map[string]Maker
	mu     sync.RWMutex
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{makers: make(map[string]Maker)}
}

// Register adds a maker under module, replacing any earlier one
func (c *Catalog) Register(module string, m Maker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.makers[module] = m
}

// Get returns the maker registered under module
func (c *Catalog) Get(module string) (Maker, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.makers[module]
	if !ok {
		return nil, errors.New(errors.ErrorTypeLookup, fmt.Sprintf("model module %q not found, is its package imported?", module)).
			WithDetail("module", module)
	}
	return m, nil
}

// Names returns the registered module names in sorted order
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.makers))
	for name := range c.makers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Makers is the catalog model packages add themselves to from init
var Makers = NewCatalog()

// Register adds a maker to the Makers catalog
func Register(module string, m Maker) {
	Makers.Register(module, m)
}
