package config

import (
	"fmt"

	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// requiredKeys lists the configuration keys that must be present.
// datasources, datasinks and api are optional.
var requiredKeys = []struct {
	path  string
	value func(*Config) string
}{
	{"model_store:location", func(c *Config) string { return c.ModelStore.Location }},
	{"model:name", func(c *Config) string { return c.Model.Name }},
	{"model:version", func(c *Config) string { return c.Model.Version }},
	{"model:module", func(c *Config) string { return c.Model.Module }},
}

// Validate checks required keys and configuration semantics.
// Connector-level checks happen when connectors are built.
func Validate(cfg *Config) error {
	for _, key := range requiredKeys {
		if key.value(cfg) == "" {
			return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("missing key in config file: %s", key.path)).
				WithDetail("key", key.path)
		}
	}

	if cfg.API != nil && cfg.API.Version != "" {
		return errors.New(errors.ErrorTypeConfig,
			"'api:version:' is not allowed in the config, only 'model:version:'")
	}

	for name, db := range cfg.DBMS {
		if db.Type == "" {
			return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("dbms connection '%s' is missing 'type'", name)).
				WithDetail("connection", name)
		}
	}

	return nil
}
