package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/launchpad/pkg/errors"
)

const (
	includeTag      = "!include"
	maxIncludeDepth = 16
)

// Load reads, parses and validates the configuration file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: config path is chosen by the operator
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// Parse parses and validates configuration YAML. Includes are resolved relative to baseDir.
func Parse(data []byte, baseDir string) (*Config, error) {
	root, err := parseNode(data, baseDir, 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if root != nil {
		if err := root.Decode(cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode configuration")
		}
	}
	cfg.fillNames()

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseNode substitutes environment variables, parses YAML and resolves includes
func parseNode(data []byte, baseDir string, depth int) (*yaml.Node, error) {
	if depth > maxIncludeDepth {
		return nil, errors.New(errors.ErrorTypeConfig, "includes nested too deeply (include cycle?)")
	}

	content := substituteEnvVars(string(data))

	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader([]byte(content)))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML")
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if err := resolveIncludes(root, baseDir, depth); err != nil {
		return nil, err
	}
	return root, nil
}

// resolveIncludes replaces every !include scalar below node with the included document
func resolveIncludes(node *yaml.Node, baseDir string, depth int) error {
	if node.Kind == yaml.ScalarNode && node.Tag == includeTag {
		path := node.Value
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := os.ReadFile(path) //nolint:gosec // G304: included from the operator's config
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to read included file").
				WithDetail("path", path)
		}
		included, err := parseNode(data, filepath.Dir(path), depth+1)
		if err != nil {
			return err
		}
		if included == nil {
			*node = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"}
			return nil
		}
		*node = *included
		return nil
	}

	for _, child := range node.Content {
		if err := resolveIncludes(child, baseDir, depth); err != nil {
			return err
		}
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}

func (c *Config) fillNames() {
	for name, ds := range c.DataSources {
		ds.Name = name
		c.DataSources[name] = ds
	}
	for name, ds := range c.DataSinks {
		ds.Name = name
		c.DataSinks[name] = ds
	}
	for name, db := range c.DBMS {
		db.Name = name
		c.DBMS[name] = db
	}
}

// Encode renders the configuration as YAML, with includes and environment
// variables already resolved
func Encode(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
	}
	return data, nil
}

// Save writes the resolved configuration to path. The file is readable by
// the owner only since substituted variables may hold secrets.
func Save(path string, cfg *Config) error {
	data, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write config file").WithDetail("path", path)
	}
	return nil
}
