package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// Plugin registers one or more connector types with a registry
type Plugin func(r *Registry)

// Catalog holds the plugins compiled into the binary, by name.
// The config's "plugins:" list selects which of them are applied and in what order.
type Catalog struct {
	plugins map[string]Plugin
	mu      sync.RWMutex
}

// NewCatalog creates an empty plugin catalog
func NewCatalog() *Catalog {
	return &Catalog{plugins: make(map[string]Plugin)}
}

// Register adds a plugin under name, replacing any earlier plugin of the same name
func (c *Catalog) Register(name string, p Plugin) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plugins[name] = p
}

// Get returns the plugin registered under name
func (c *Catalog) Get(name string) (Plugin, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, exists := c.plugins[name]
	if !exists {
		return nil, errors.New(errors.ErrorTypeLookup, fmt.Sprintf("plugin %q not found", name)).
			WithDetail("plugin", name)
	}
	return p, nil
}

// Names returns the registered plugin names in sorted order
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.plugins))
	for name := range c.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Plugins is the catalog that plugin packages add themselves to from init
var Plugins = NewCatalog()

// RegisterPlugin adds a plugin to the Plugins catalog
func RegisterPlugin(name string, p Plugin) {
	Plugins.Register(name, p)
}

// Apply applies the named plugins from catalog to r in order. Later plugins
// override types registered by earlier ones and by the built-ins.
// An unknown name fails before any plugin is applied.
func (r *Registry) Apply(catalog *Catalog, names []string) error {
	plugins := make([]Plugin, 0, len(names))
	for _, name := range names {
		p, err := catalog.Get(name)
		if err != nil {
			return err
		}
		plugins = append(plugins, p)
	}

	for i, p := range plugins {
		p(r)
		r.logger.Info("plugin applied", zap.String("plugin", names[i]))
	}
	return nil
}
