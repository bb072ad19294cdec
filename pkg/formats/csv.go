package formats

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
)

type csvDialect struct {
	sep     rune
	decimal rune
}

func (d csvDialect) with(sep rune) csvDialect {
	if sep != 0 {
		d.sep = sep
	}
	return d
}

// decodeCSV reads a header row followed by data rows. Columns named in dtypes
// get that type; the others are inferred from their values.
func decodeCSV(r io.Reader, d csvDialect, dtypes []core.Field) (*core.Frame, error) {
	reader := csv.NewReader(r)
	reader.Comma = d.sep

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return core.NewFrame(), nil
	}

	columns := records[0]
	body := records[1:]

	forced := make(map[string]core.FieldType, len(dtypes))
	for _, f := range dtypes {
		forced[f.Name] = f.Type
	}

	types := make([]core.FieldType, len(columns))
	values := make([]string, len(body))
	for c, name := range columns {
		if typ, ok := forced[name]; ok {
			types[c] = typ
			continue
		}
		for i, rec := range body {
			values[i] = rec[c]
		}
		types[c] = inferColumn(values, d.decimal)
	}

	frame := &core.Frame{Columns: columns, Rows: make([][]interface{}, 0, len(body))}
	for i, rec := range body {
		row := make([]interface{}, len(columns))
		for c, cell := range rec {
			if cell == "" {
				continue
			}
			v, err := parseCell(cell, types[c], d.decimal)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", i+2, columns[c], err)
			}
			row[c] = v
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame, nil
}

// encodeCSV writes a header row followed by one line per row
func encodeCSV(w io.Writer, frame *core.Frame, d csvDialect) error {
	writer := csv.NewWriter(w)
	writer.Comma = d.sep

	if err := writer.Write(frame.Columns); err != nil {
		return err
	}

	line := make([]string, len(frame.Columns))
	for _, row := range frame.Rows {
		for c, v := range row {
			s, err := formatCell(v, d.decimal)
			if err != nil {
				return fmt.Errorf("column %s: %w", frame.Columns[c], err)
			}
			line[c] = s
		}
		if err := writer.Write(line); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatCell(v interface{}, decimal rune) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case float64:
		return formatFloat(t, decimal), nil
	case float32:
		return formatFloat(float64(t), decimal), nil
	case bool:
		if t {
			return "True", nil
		}
		return "False", nil
	case time.Time:
		return t.Format(TimeLayout), nil
	default:
		return cast.ToStringE(v)
	}
}

func formatFloat(f float64, decimal rune) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if decimal != '.' && decimal != 0 {
		s = strings.Replace(s, ".", string(decimal), 1)
	}
	return s
}
