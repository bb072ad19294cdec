// Package blob implements datasources and datasinks over single stored
// objects: local files and cloud storage objects. The object's bytes are
// optionally compressed and either decoded into frames or passed through raw,
// depending on the connector's layout.
package blob

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/ajitpratap0/launchpad/pkg/compression"
	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/base"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/formats"
)

// Object is a single stored object
type Object interface {
	// Read returns the stored bytes
	Read(ctx context.Context) ([]byte, error)
	// Write replaces the stored bytes, creating the object if needed
	Write(ctx context.Context, data []byte) error
	// Stat returns an error if the object cannot be reached
	Stat(ctx context.Context) error
	// String returns the object location for logs and errors
	String() string
}

// Layout describes how an object's bytes are interpreted
type Layout struct {
	// Format decodes the bytes into frames, empty for raw layouts
	Format formats.Format
	// Text marks raw layouts holding UTF-8 text
	Text bool
}

// Tabular reports whether the layout holds frames
func (l Layout) Tabular() bool {
	return l.Format != ""
}

func (l Layout) String() string {
	switch {
	case l.Tabular():
		return string(l.Format)
	case l.Text:
		return "text"
	default:
		return "binary"
	}
}

// File connector types
const (
	TypeCSV        = "csv"
	TypeEuroCSV    = "euro_csv"
	TypeAvroFile   = "avro_file"
	TypeArrowFile  = "arrow_file"
	TypeJSONFile   = "json_file"
	TypeTextFile   = "text_file"
	TypeBinaryFile = "binary_file"
)

// FileTypeNames lists the file connector types in registration order
var FileTypeNames = []string{TypeCSV, TypeEuroCSV, TypeAvroFile, TypeArrowFile, TypeJSONFile, TypeTextFile, TypeBinaryFile}

// FileTypes maps the file connector types to their layouts
var FileTypes = map[string]Layout{
	TypeCSV:        {Format: formats.CSV},
	TypeEuroCSV:    {Format: formats.EuroCSV},
	TypeAvroFile:   {Format: formats.Avro},
	TypeArrowFile:  {Format: formats.Arrow},
	TypeJSONFile:   {Format: formats.JSON},
	TypeTextFile:   {Text: true},
	TypeBinaryFile: {},
}

var layoutNames = map[string]Layout{
	"csv":      {Format: formats.CSV},
	"euro_csv": {Format: formats.EuroCSV},
	"avro":     {Format: formats.Avro},
	"arrow":    {Format: formats.Arrow},
	"json":     {Format: formats.JSON},
	"text":     {Text: true},
	"binary":   {},
}

var layoutExtensions = map[string]Layout{
	".csv":     {Format: formats.CSV},
	".avro":    {Format: formats.Avro},
	".arrow":   {Format: formats.Arrow},
	".feather": {Format: formats.Arrow},
	".json":    {Format: formats.JSON},
	".txt":     {Text: true},
}

// LayoutFor returns the layout of an object storage connector: the "format"
// option when set, otherwise the extension of the path without its
// compression suffix. Unknown extensions are treated as binary.
func LayoutFor(cfg config.ConnectorConfig) (Layout, error) {
	name, err := cfg.OptionString("format", "")
	if err != nil {
		return Layout{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid 'format' option").
			WithDetail("connector", cfg.Name)
	}
	if name != "" {
		l, ok := layoutNames[strings.ToLower(name)]
		if !ok {
			return Layout{}, errors.Newf(errors.ErrorTypeConfig, "connector '%s': unsupported format '%s'", cfg.Name, name).
				WithDetail("connector", cfg.Name)
		}
		return l, nil
	}
	ext := strings.ToLower(path.Ext(compression.TrimExt(cfg.Path)))
	return layoutExtensions[ext], nil
}

// settings are the options shared by blob sources and sinks
type settings struct {
	compression compression.Algorithm
	separator   rune
	avroCodec   string
}

func parseSettings(cfg config.ConnectorConfig, location string) (settings, error) {
	var s settings

	opt, err := cfg.OptionString("compression", "")
	if err != nil {
		return s, err
	}
	if s.compression, err = compression.Resolve(opt, location); err != nil {
		return s, err
	}

	sep, err := cfg.OptionString("separator", "")
	if err != nil {
		return s, err
	}
	if r := []rune(sep); len(r) > 1 {
		return s, fmt.Errorf("separator must be a single character, got %q", sep)
	} else if len(r) == 1 {
		s.separator = r[0]
	}

	if s.avroCodec, err = cfg.OptionString("avro_codec", ""); err != nil {
		return s, err
	}
	return s, nil
}

func newSettings(bc *base.BaseConnector, location string) (settings, error) {
	s, err := parseSettings(bc.Spec().Connector, location)
	if err != nil {
		return s, errors.Wrap(err, errors.ErrorTypeConfig, "invalid connector options").
			WithDetail("connector", bc.Name())
	}
	return s, nil
}
