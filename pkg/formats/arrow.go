package formats

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
)

func arrowType(typ core.FieldType) arrow.DataType {
	switch typ {
	case core.FieldTypeInt:
		return arrow.PrimitiveTypes.Int64
	case core.FieldTypeFloat:
		return arrow.PrimitiveTypes.Float64
	case core.FieldTypeBool:
		return arrow.FixedWidthTypes.Boolean
	case core.FieldTypeTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

func encodeArrow(w io.Writer, frame *core.Frame) error {
	fields := Fields(frame)
	arrowFields := make([]arrow.Field, len(fields))
	for i, f := range fields {
		arrowFields[i] = arrow.Field{Name: f.Name, Type: arrowType(f.Type), Nullable: true}
	}
	schema := arrow.NewSchema(arrowFields, nil)

	pool := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(pool, schema)
	defer builder.Release()

	for _, row := range frame.Rows {
		for c, f := range fields {
			if err := appendArrowValue(builder.Field(c), row[c], f.Type); err != nil {
				return fmt.Errorf("column %s: %w", f.Name, err)
			}
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		return fmt.Errorf("failed to create arrow writer: %w", err)
	}
	if err := fw.Write(record); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close arrow writer: %w", err)
	}
	return nil
}

func appendArrowValue(builder array.Builder, value interface{}, typ core.FieldType) error {
	if value == nil {
		builder.AppendNull()
		return nil
	}

	v, err := Convert(value, typ)
	if err != nil {
		return err
	}

	switch b := builder.(type) {
	case *array.Int64Builder:
		b.Append(v.(int64))
	case *array.Float64Builder:
		b.Append(v.(float64))
	case *array.BooleanBuilder:
		b.Append(v.(bool))
	case *array.TimestampBuilder:
		b.Append(arrow.Timestamp(v.(time.Time).UnixMicro()))
	case *array.StringBuilder:
		b.Append(v.(string))
	default:
		return fmt.Errorf("unsupported builder type: %T", builder)
	}
	return nil
}

func decodeArrow(r io.Reader) (*core.Frame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read arrow data: %w", err)
	}

	fr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}
	defer fr.Close()

	schema := fr.Schema()
	columns := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		columns[i] = f.Name
	}

	frame := core.NewFrame(columns...)
	for b := 0; b < fr.NumRecords(); b++ {
		// the record is owned by the reader until the next call to Record
		rec, err := fr.Record(b)
		if err != nil {
			return nil, fmt.Errorf("failed to read record batch %d: %w", b, err)
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make([]interface{}, len(columns))
			for c := range columns {
				row[c] = arrowValue(rec.Column(c), i)
			}
			frame.Rows = append(frame.Rows, row)
		}
	}
	return frame, nil
}

func arrowValue(col arrow.Array, i int) interface{} {
	if col.IsNull(i) {
		return nil
	}

	switch c := col.(type) {
	case *array.Boolean:
		return c.Value(i)
	case *array.Int64:
		return c.Value(i)
	case *array.Int32:
		return int64(c.Value(i))
	case *array.Float64:
		return c.Value(i)
	case *array.Float32:
		return float64(c.Value(i))
	case *array.String:
		return c.Value(i)
	case *array.LargeString:
		return c.Value(i)
	case *array.Timestamp:
		unit := c.DataType().(*arrow.TimestampType).Unit
		return c.Value(i).ToTime(unit)
	default:
		return col.ValueStr(i)
	}
}
