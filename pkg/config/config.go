package config

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Recognized connector tags, one per lifecycle phase
const (
	TagTrain   = "train"
	TagTest    = "test"
	TagPredict = "predict"
)

// ValidTags lists every recognized tag
var ValidTags = []string{TagTrain, TagTest, TagPredict}

// DefaultCacheSize bounds the distinct parameter sets cached per datasource
// when cache_size is not configured.
const DefaultCacheSize = 128

// Config is the complete Launchpad configuration
type Config struct {
	// Plugins lists plugin names applied after the built-in connectors, in order
	Plugins []string `yaml:"plugins" json:"plugins,omitempty"`
	// DBMS holds named shared connection blocks
	DBMS map[string]DBMSConfig `yaml:"dbms" json:"dbms,omitempty"`
	// DataSources holds datasource configurations keyed by name
	DataSources map[string]ConnectorConfig `yaml:"datasources" json:"datasources,omitempty"`
	// DataSinks holds datasink configurations keyed by name
	DataSinks map[string]ConnectorConfig `yaml:"datasinks" json:"datasinks,omitempty"`
	// ModelStore configures where trained models are kept
	ModelStore ModelStoreConfig `yaml:"model_store" json:"model_store"`
	// Model describes the model being served
	Model ModelConfig `yaml:"model" json:"model"`
	// API configures the prediction API, optional
	API *APIConfig `yaml:"api" json:"api,omitempty"`

	// Path is the file the configuration was loaded from, empty for in-memory configs
	Path string `yaml:"-" json:"-"`
}

// ConnectorConfig configures one datasource or datasink
type ConnectorConfig struct {
	// Name is the key of the connector in datasources/datasinks
	Name string `yaml:"-" json:"name"`
	// Type selects the implementation, e.g. "csv" or "dbms.<connection>"
	Type string `yaml:"type" json:"type"`
	// Path locates file and object storage data
	Path string `yaml:"path" json:"path,omitempty"`
	// Query is the query text for database connectors
	Query string `yaml:"query" json:"query,omitempty"`
	// Table is the target table or collection
	Table string `yaml:"table" json:"table,omitempty"`
	// Expires is the cache TTL in seconds: -1 never expires, 0 no caching
	Expires *int `yaml:"expires" json:"expires,omitempty"`
	// CacheSize bounds the distinct parameter sets kept in the cache
	CacheSize *int `yaml:"cache_size" json:"cache_size,omitempty"`
	// Options are passed to the underlying access call
	Options map[string]interface{} `yaml:"options" json:"options,omitempty"`
	// Tags controls in which lifecycle phases the connector is visible
	Tags Tags `yaml:"tags" json:"tags"`
	// DtypesPath locates a column type description for csv data
	DtypesPath string `yaml:"dtypes_path" json:"dtypes_path,omitempty"`
}

// DBMSConfig is a named connection block shared by database connectors
type DBMSConfig struct {
	Name             string                 `yaml:"-" json:"name"`
	Type             string                 `yaml:"type" json:"type"`
	ConnectionString string                 `yaml:"connection_string" json:"connection_string,omitempty"`
	Host             string                 `yaml:"host" json:"host,omitempty"`
	Port             int                    `yaml:"port" json:"port,omitempty"`
	Database         string                 `yaml:"database" json:"database,omitempty"`
	ServiceName      string                 `yaml:"service_name" json:"service_name,omitempty"`
	UserVar          string                 `yaml:"user_var" json:"user_var,omitempty"`
	PasswordVar      string                 `yaml:"password_var" json:"password_var,omitempty"`
	Options          map[string]interface{} `yaml:"options" json:"options,omitempty"`
}

// ModelStoreConfig configures the model store
type ModelStoreConfig struct {
	Location string `yaml:"location" json:"location"`
}

// ModelConfig describes the model. Keys other than name, version and module
// are kept in Extra and handed to model code untouched.
type ModelConfig struct {
	Name    string                 `yaml:"name" json:"name"`
	Version string                 `yaml:"version" json:"version"`
	Module  string                 `yaml:"module" json:"module"`
	Extra   map[string]interface{} `yaml:",inline" json:"extra,omitempty"`
}

// Key identifies a model version, e.g. "iris_0.0.1"
func (m ModelConfig) Key() string {
	return m.Name + "_" + m.Version
}

// APIConfig configures the prediction API
type APIConfig struct {
	Name               string `yaml:"name" json:"name"`
	Resource           string `yaml:"resource" json:"resource,omitempty"`
	RootPath           string `yaml:"root_path" json:"root_path,omitempty"`
	PreloadDataSources bool   `yaml:"preload_datasources" json:"preload_datasources,omitempty"`
	// Version is rejected during validation: the API version derives from model.version
	Version string `yaml:"version" json:"-"`
}

// Tags is a set of lifecycle tags. In YAML it may be a single string or a list.
type Tags []string

// UnmarshalYAML accepts both "tags: train" and "tags: [train, test]"
func (t *Tags) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		if node.Value == "" {
			*t = nil
			return nil
		}
		*t = Tags{node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*t = list
	return nil
}

// Has reports whether tag is in the set
func (t Tags) Has(tag string) bool {
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// IsValidTag reports whether tag is a recognized lifecycle tag
func IsValidTag(tag string) bool {
	for _, v := range ValidTags {
		if v == tag {
			return true
		}
	}
	return false
}

// TTL returns the configured expiry in seconds, 0 when unset
func (c ConnectorConfig) TTL() int {
	if c.Expires == nil {
		return 0
	}
	return *c.Expires
}

// MaxEntries returns the configured cache size bound
func (c ConnectorConfig) MaxEntries() int {
	if c.CacheSize == nil || *c.CacheSize == 0 {
		return DefaultCacheSize
	}
	return *c.CacheSize
}

// MainType returns the part of Type before the first dot ("dbms" for "dbms.warehouse")
func (c ConnectorConfig) MainType() string {
	main, _, _ := strings.Cut(c.Type, ".")
	return main
}

// SubType returns the part of Type after the first dot, empty if there is none
func (c ConnectorConfig) SubType() string {
	_, sub, _ := strings.Cut(c.Type, ".")
	return sub
}

// Option returns the raw option value for key
func (c ConnectorConfig) Option(key string) (interface{}, bool) {
	v, ok := c.Options[key]
	return v, ok
}

// SourceNames returns the configured datasource names in sorted order
func (c *Config) SourceNames() []string {
	return sortedKeys(c.DataSources)
}

// SinkNames returns the configured datasink names in sorted order
func (c *Config) SinkNames() []string {
	return sortedKeys(c.DataSinks)
}

func sortedKeys(m map[string]ConnectorConfig) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
