package formats

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
)

const defaultRecordName = "Frame"

var invalidAvroName = regexp.MustCompile(`[^A-Za-z0-9_]`)

// avroField is the subset of an avro record field this package writes and reads.
// Column keeps the original column name when it is not a valid avro name.
type avroField struct {
	Name    string        `json:"name"`
	Type    []interface{} `json:"type"`
	Column  string        `json:"column,omitempty"`
	Logical string        `json:"launchpadType,omitempty"`
}

type avroSchema struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Fields []avroField `json:"fields"`
}

// schemaFields is used on decode, where field types may be any avro type
type schemaFields struct {
	Fields []struct {
		Name    string `json:"name"`
		Column  string `json:"column"`
		Logical string `json:"launchpadType"`
	} `json:"fields"`
}

func avroName(s string) string {
	n := invalidAvroName.ReplaceAllString(s, "_")
	if n == "" || (n[0] >= '0' && n[0] <= '9') {
		n = "_" + n
	}
	return n
}

func avroPrimitive(typ core.FieldType) string {
	switch typ {
	case core.FieldTypeInt:
		return "long"
	case core.FieldTypeFloat:
		return "double"
	case core.FieldTypeBool:
		return "boolean"
	default:
		return "string"
	}
}

func buildAvroSchema(frame *core.Frame, name string) (string, []avroField, error) {
	if name == "" {
		name = defaultRecordName
	}

	fields := Fields(frame)
	schema := avroSchema{Type: "record", Name: avroName(name), Fields: make([]avroField, len(fields))}
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		af := avroField{
			Name: avroName(f.Name),
			Type: []interface{}{"null", avroPrimitive(f.Type)},
		}
		if seen[af.Name] {
			return "", nil, fmt.Errorf("column %q collides with another column as avro field %q", f.Name, af.Name)
		}
		seen[af.Name] = true
		if af.Name != f.Name {
			af.Column = f.Name
		}
		if f.Type == core.FieldTypeTimestamp {
			af.Logical = string(core.FieldTypeTimestamp)
		}
		schema.Fields[i] = af
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return "", nil, err
	}
	return string(data), schema.Fields, nil
}

func encodeAvro(w io.Writer, frame *core.Frame, opts WriteOptions) error {
	schema, fields, err := buildAvroSchema(frame, opts.Name)
	if err != nil {
		return err
	}

	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return fmt.Errorf("failed to create avro codec: %w", err)
	}

	compression := opts.Codec
	if compression == "" {
		compression = goavro.CompressionNullLabel
	}

	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: compression,
	})
	if err != nil {
		return fmt.Errorf("failed to create avro writer: %w", err)
	}

	natives := make([]interface{}, 0, len(frame.Rows))
	for _, row := range frame.Rows {
		native := make(map[string]interface{}, len(fields))
		for c, f := range fields {
			v, err := avroValue(row[c], f.Type[1].(string))
			if err != nil {
				return fmt.Errorf("column %s: %w", frame.Columns[c], err)
			}
			native[f.Name] = v
		}
		natives = append(natives, native)
	}

	if len(natives) == 0 {
		return nil
	}
	if err := ocf.Append(natives); err != nil {
		return fmt.Errorf("failed to write avro records: %w", err)
	}
	return nil
}

func avroValue(v interface{}, primitive string) (interface{}, error) {
	if v == nil {
		return nil, nil
	}

	var converted interface{}
	var err error
	switch primitive {
	case "long":
		converted, err = Convert(v, core.FieldTypeInt)
	case "double":
		converted, err = Convert(v, core.FieldTypeFloat)
	case "boolean":
		converted, err = Convert(v, core.FieldTypeBool)
	default:
		if t, ok := v.(time.Time); ok {
			converted = t.Format(time.RFC3339Nano)
		} else {
			converted, err = Convert(v, core.FieldTypeString)
		}
	}
	if err != nil {
		return nil, err
	}
	return goavro.Union(primitive, converted), nil
}

func decodeAvro(r io.Reader) (*core.Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read avro data: %w", err)
	}

	ocf, err := goavro.NewOCFReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create avro reader: %w", err)
	}

	var schema schemaFields
	if err := json.Unmarshal([]byte(ocf.Codec().Schema()), &schema); err != nil {
		return nil, fmt.Errorf("failed to parse avro schema: %w", err)
	}

	columns := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		columns[i] = f.Name
		if f.Column != "" {
			columns[i] = f.Column
		}
	}

	frame := core.NewFrame(columns...)
	for ocf.Scan() {
		datum, err := ocf.Read()
		if err != nil {
			return nil, fmt.Errorf("failed to read avro record: %w", err)
		}
		record, ok := datum.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected avro datum %T", datum)
		}

		row := make([]interface{}, len(columns))
		for i, f := range schema.Fields {
			v := unwrapUnion(record[f.Name])
			if f.Logical == string(core.FieldTypeTimestamp) {
				if s, ok := v.(string); ok {
					t, err := time.Parse(time.RFC3339Nano, s)
					if err != nil {
						return nil, fmt.Errorf("column %s: %w", columns[i], err)
					}
					v = t
				}
			}
			row[i] = normalizeAvro(v)
		}
		frame.Rows = append(frame.Rows, row)
	}
	if err := ocf.Err(); err != nil {
		return nil, fmt.Errorf("failed to read avro records: %w", err)
	}
	return frame, nil
}

// unwrapUnion returns the value of a single member union datum
func unwrapUnion(v interface{}) interface{} {
	if m, ok := v.(map[string]interface{}); ok && len(m) == 1 {
		for _, inner := range m {
			return inner
		}
	}
	return v
}

func normalizeAvro(v interface{}) interface{} {
	switch t := v.(type) {
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float32:
		return float64(t)
	case []byte:
		return string(t)
	default:
		return v
	}
}
