// Package formats encodes and decodes frames for file and object storage connectors.
//
// Supported formats are csv, euro_csv (";" separated with "," decimals), avro
// object container files, arrow IPC files and json record arrays.
package formats

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
)

// Format represents a tabular encoding
type Format string

const (
	// CSV is comma separated values with "." decimals
	CSV Format = "csv"
	// EuroCSV is semicolon separated values with "," decimals
	EuroCSV Format = "euro_csv"
	// Avro is an Apache Avro object container file
	Avro Format = "avro"
	// Arrow is an Apache Arrow IPC file
	Arrow Format = "arrow"
	// JSON is an array of JSON objects, one per row
	JSON Format = "json"
)

// ReadOptions configures decoding
type ReadOptions struct {
	// Dtypes forces column types, typically loaded from a dtypes_path file
	Dtypes []core.Field
	// Separator overrides the csv field separator
	Separator rune
}

// WriteOptions configures encoding
type WriteOptions struct {
	// Separator overrides the csv field separator
	Separator rune
	// Name is the record name written into avro schemas
	Name string
	// Codec is the avro block codec: null, deflate or snappy
	Codec string
}

// Parse converts a format name into a Format
func Parse(name string) (Format, error) {
	switch f := Format(name); f {
	case CSV, EuroCSV, Avro, Arrow, JSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s", name)
}

// Decode reads a frame in format f from r
func Decode(f Format, r io.Reader, opts ReadOptions) (*core.Frame, error) {
	switch f {
	case CSV:
		return decodeCSV(r, csvDialect{sep: ',', decimal: '.'}.with(opts.Separator), opts.Dtypes)
	case EuroCSV:
		return decodeCSV(r, csvDialect{sep: ';', decimal: ','}.with(opts.Separator), opts.Dtypes)
	case Avro:
		return decodeAvro(r)
	case Arrow:
		return decodeArrow(r)
	case JSON:
		return decodeJSON(r, opts.Dtypes)
	default:
		return nil, fmt.Errorf("unsupported format: %s", f)
	}
}

// Encode writes frame in format f to w
func Encode(f Format, w io.Writer, frame *core.Frame, opts WriteOptions) error {
	switch f {
	case CSV:
		return encodeCSV(w, frame, csvDialect{sep: ',', decimal: '.'}.with(opts.Separator))
	case EuroCSV:
		return encodeCSV(w, frame, csvDialect{sep: ';', decimal: ','}.with(opts.Separator))
	case Avro:
		return encodeAvro(w, frame, opts)
	case Arrow:
		return encodeArrow(w, frame)
	case JSON:
		return encodeJSON(w, frame)
	default:
		return fmt.Errorf("unsupported format: %s", f)
	}
}
