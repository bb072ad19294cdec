package config

import (
	"github.com/spf13/cast"
)

// OptionString returns options[key] as a string, or def when absent
func (c ConnectorConfig) OptionString(key, def string) (string, error) {
	v, ok := c.Options[key]
	if !ok || v == nil {
		return def, nil
	}
	return cast.ToStringE(v)
}

// OptionInt returns options[key] as an int, or def when absent
func (c ConnectorConfig) OptionInt(key string, def int) (int, error) {
	v, ok := c.Options[key]
	if !ok || v == nil {
		return def, nil
	}
	return cast.ToIntE(v)
}

// OptionBool returns options[key] as a bool, or def when absent
func (c ConnectorConfig) OptionBool(key string, def bool) (bool, error) {
	v, ok := c.Options[key]
	if !ok || v == nil {
		return def, nil
	}
	return cast.ToBoolE(v)
}

// StringOptions returns all options converted to strings
func StringOptions(options map[string]interface{}) (map[string]string, error) {
	out := make(map[string]string, len(options))
	for k, v := range options {
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, err
		}
		out[k] = s
	}
	return out, nil
}
