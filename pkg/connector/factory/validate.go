package factory

import (
	"fmt"

	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// Validate checks every datasource and datasink of cfg without building any
func Validate(cfg *config.Config) error {
	for _, name := range cfg.SourceNames() {
		if err := ValidateConnector(cfg, "datasource", cfg.DataSources[name]); err != nil {
			return err
		}
	}
	for _, name := range cfg.SinkNames() {
		if err := ValidateConnector(cfg, "datasink", cfg.DataSinks[name]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateConnector checks one connector configuration. kind is "datasource"
// or "datasink" and only appears in error messages.
func ValidateConnector(cfg *config.Config, kind string, cc config.ConnectorConfig) error {
	invalid := func(format string, args ...interface{}) error {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("%s '%s': ", kind, cc.Name)+fmt.Sprintf(format, args...)).
			WithDetail("connector", cc.Name)
	}

	if cc.Type == "" {
		return invalid("missing 'type'")
	}
	if cc.Expires == nil {
		return invalid("missing 'expires', use -1 to never expire or 0 to disable caching")
	}
	if *cc.Expires < -1 {
		return invalid("'expires' must be -1, 0 or positive, got %d", *cc.Expires)
	}
	if cc.CacheSize != nil && *cc.CacheSize < 0 {
		return invalid("'cache_size' must not be negative, got %d", *cc.CacheSize)
	}
	if len(cc.Tags) == 0 {
		return invalid("missing 'tags', expected any of %v", config.ValidTags)
	}
	for _, tag := range cc.Tags {
		if !config.IsValidTag(tag) {
			return invalid("invalid tag %q, expected any of %v", tag, config.ValidTags)
		}
	}

	if cc.MainType() == DBMSPrefix {
		ref := cc.SubType()
		if ref == "" {
			return invalid("type '%s' must name a dbms connection as 'dbms.<name>'", cc.Type)
		}
		if _, ok := cfg.DBMS[ref]; !ok {
			return invalid("dbms connection '%s' is not defined", ref)
		}
	}
	return nil
}
