package core

import (
	"fmt"
	"sort"
)

// FieldType represents the data type of a column
type FieldType string

const (
	FieldTypeString    FieldType = "str"
	FieldTypeInt       FieldType = "int"
	FieldTypeFloat     FieldType = "float"
	FieldTypeBool      FieldType = "bool"
	FieldTypeTimestamp FieldType = "datetime"
)

// Field describes one column
type Field struct {
	Name string
	Type FieldType
}

// Frame is a table of rows. Rows hold one value per column, in column order.
type Frame struct {
	Columns []string
	Rows    [][]interface{}
}

// NewFrame creates an empty frame with the given columns
func NewFrame(columns ...string) *Frame {
	return &Frame{Columns: columns}
}

// Append adds a row. The row must have one value per column.
func (f *Frame) Append(values ...interface{}) error {
	if len(values) != len(f.Columns) {
		return fmt.Errorf("row has %d values, frame has %d columns", len(values), len(f.Columns))
	}
	f.Rows = append(f.Rows, values)
	return nil
}

// Len returns the number of rows
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}

// ColumnIndex returns the position of column name, or -1
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns all values of column name
func (f *Frame) Column(name string) ([]interface{}, bool) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]interface{}, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Records returns the rows as column-name keyed maps
func (f *Frame) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, len(f.Rows))
	for i, row := range f.Rows {
		rec := make(map[string]interface{}, len(f.Columns))
		for j, c := range f.Columns {
			rec[c] = row[j]
		}
		out[i] = rec
	}
	return out
}

// FrameFromRecords builds a frame from maps. Columns are taken from the given
// order, or from the keys of the first record in sorted order when columns is empty.
func FrameFromRecords(records []map[string]interface{}, columns ...string) *Frame {
	if len(columns) == 0 && len(records) > 0 {
		columns = sortedKeys(records[0])
	}
	f := NewFrame(columns...)
	for _, rec := range records {
		row := make([]interface{}, len(columns))
		for i, c := range columns {
			row[i] = rec[c]
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
