package formats

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
)

// dtypesHeader is the header row of a dtypes file
var dtypesHeader = []string{"columns", "dtypes"}

// ParseDtype maps a dtype name to a field type. Pandas names such as int64,
// float32, object and datetime64[ns] are accepted alongside the field type names.
func ParseDtype(name string) (core.FieldType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case n == "str" || n == "string" || n == "object" || n == "category":
		return core.FieldTypeString, nil
	case n == "bool" || n == "boolean":
		return core.FieldTypeBool, nil
	case strings.HasPrefix(n, "int") || strings.HasPrefix(n, "uint"):
		return core.FieldTypeInt, nil
	case strings.HasPrefix(n, "float") || n == "double":
		return core.FieldTypeFloat, nil
	case strings.HasPrefix(n, "datetime") || n == "timestamp":
		return core.FieldTypeTimestamp, nil
	}
	return "", fmt.Errorf("unsupported dtype: %s", name)
}

// DtypeName returns the name written to dtypes files for typ
func DtypeName(typ core.FieldType) string {
	switch typ {
	case core.FieldTypeInt:
		return "int64"
	case core.FieldTypeFloat:
		return "float64"
	case core.FieldTypeBool:
		return "bool"
	case core.FieldTypeTimestamp:
		return "datetime"
	default:
		return "str"
	}
}

// ReadDtypes reads a two column csv mapping column names to dtypes
func ReadDtypes(r io.Reader) ([]core.Field, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse dtypes: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	start := 0
	if len(records[0]) == 2 && records[0][0] == dtypesHeader[0] && records[0][1] == dtypesHeader[1] {
		start = 1
	}

	fields := make([]core.Field, 0, len(records)-start)
	for i, rec := range records[start:] {
		if len(rec) != 2 {
			return nil, fmt.Errorf("dtypes line %d: expected 2 fields, got %d", i+start+1, len(rec))
		}
		typ, err := ParseDtype(rec[1])
		if err != nil {
			return nil, fmt.Errorf("dtypes line %d: %w", i+start+1, err)
		}
		fields = append(fields, core.Field{Name: rec[0], Type: typ})
	}
	return fields, nil
}

// WriteDtypes writes fields in the format read by ReadDtypes
func WriteDtypes(w io.Writer, fields []core.Field) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(dtypesHeader); err != nil {
		return err
	}
	for _, f := range fields {
		if err := writer.Write([]string{f.Name, DtypeName(f.Type)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
