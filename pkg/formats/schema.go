package formats

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
)

// timeLayouts are tried in order when parsing datetime values
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// TimeLayout is used when writing datetime values to text formats
const TimeLayout = "2006-01-02 15:04:05"

// ParseTime parses s with the first matching layout
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as datetime", s)
}

// TypeOf returns the field type of a single value, "" for nil
func TypeOf(v interface{}) core.FieldType {
	switch v.(type) {
	case nil:
		return ""
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return core.FieldTypeInt
	case float32, float64:
		return core.FieldTypeFloat
	case bool:
		return core.FieldTypeBool
	case time.Time:
		return core.FieldTypeTimestamp
	default:
		return core.FieldTypeString
	}
}

// Fields infers the field type of every column of frame. Mixed int and float
// columns become float; any other mix, or an all-nil column, becomes str.
func Fields(frame *core.Frame) []core.Field {
	fields := make([]core.Field, len(frame.Columns))
	for i, name := range frame.Columns {
		var typ core.FieldType
		for _, row := range frame.Rows {
			t := TypeOf(row[i])
			switch {
			case t == "":
			case typ == "":
				typ = t
			case typ == t:
			case (typ == core.FieldTypeInt && t == core.FieldTypeFloat) || (typ == core.FieldTypeFloat && t == core.FieldTypeInt):
				typ = core.FieldTypeFloat
			default:
				typ = core.FieldTypeString
			}
		}
		if typ == "" {
			typ = core.FieldTypeString
		}
		fields[i] = core.Field{Name: name, Type: typ}
	}
	return fields
}

// Convert converts v to the Go representation of typ: int64, float64, bool,
// string or time.Time. Empty strings and nil become nil.
func Convert(v interface{}, typ core.FieldType) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		return parseCell(s, typ, '.')
	}

	switch typ {
	case core.FieldTypeInt:
		return cast.ToInt64E(v)
	case core.FieldTypeFloat:
		return cast.ToFloat64E(v)
	case core.FieldTypeBool:
		return cast.ToBoolE(v)
	case core.FieldTypeTimestamp:
		return cast.ToTimeE(v)
	default:
		return cast.ToStringE(v)
	}
}

// parseCell parses a text value as typ. Numbers are always base 10.
func parseCell(s string, typ core.FieldType, decimal rune) (interface{}, error) {
	if s == "" && typ != core.FieldTypeString {
		return nil, nil
	}
	switch typ {
	case core.FieldTypeInt:
		return strconv.ParseInt(s, 10, 64)
	case core.FieldTypeFloat:
		return strconv.ParseFloat(normalizeDecimal(s, decimal), 64)
	case core.FieldTypeBool:
		return strconv.ParseBool(strings.ToLower(s))
	case core.FieldTypeTimestamp:
		return ParseTime(s)
	default:
		return s, nil
	}
}

// ConvertFrame converts the columns named in dtypes in place
func ConvertFrame(frame *core.Frame, dtypes []core.Field) error {
	for _, field := range dtypes {
		idx := frame.ColumnIndex(field.Name)
		if idx < 0 {
			continue
		}
		for r, row := range frame.Rows {
			v, err := Convert(row[idx], field.Type)
			if err != nil {
				return fmt.Errorf("row %d, column %s: %w", r+1, field.Name, err)
			}
			row[idx] = v
		}
	}
	return nil
}

// inferColumn picks the narrowest type all non-empty values parse as
func inferColumn(values []string, decimal rune) core.FieldType {
	isInt, isFloat, isBool, seen := true, true, true, false
	for _, s := range values {
		if s == "" {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(normalizeDecimal(s, decimal), 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			switch s {
			case "True", "False", "true", "false":
			default:
				isBool = false
			}
		}
	}
	switch {
	case !seen:
		return core.FieldTypeString
	case isInt:
		return core.FieldTypeInt
	case isFloat:
		return core.FieldTypeFloat
	case isBool:
		return core.FieldTypeBool
	default:
		return core.FieldTypeString
	}
}

func normalizeDecimal(s string, decimal rune) string {
	if decimal == '.' || decimal == 0 {
		return s
	}
	return strings.Replace(s, string(decimal), ".", 1)
}
