package formats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
)

func sampleFrame(t *testing.T) *core.Frame {
	t.Helper()
	frame := core.NewFrame("id", "score", "label", "ok", "at")
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, frame.Append(int64(1), 0.5, "setosa", true, at))
	require.NoError(t, frame.Append(int64(2), 1.25, "versicolor", false, at.Add(time.Hour)))
	require.NoError(t, frame.Append(int64(3), nil, nil, true, at.Add(2*time.Hour)))
	return frame
}

func TestParse(t *testing.T) {
	for _, name := range []string{"csv", "euro_csv", "avro", "arrow", "json"} {
		f, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, Format(name), f)
	}

	_, err := Parse("parquet")
	assert.Error(t, err)
}

func TestDecodeCSVInfersTypes(t *testing.T) {
	in := "a,b,c,d,e\n1,2.5,x,True,010\n2,3,y,False,\n"

	frame, err := Decode(CSV, strings.NewReader(in), ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, frame.Columns)
	require.Equal(t, 2, frame.Len())
	assert.Equal(t, []interface{}{int64(1), 2.5, "x", true, int64(10)}, frame.Rows[0])
	assert.Equal(t, []interface{}{int64(2), 3.0, "y", false, nil}, frame.Rows[1])
}

func TestDecodeCSVDtypes(t *testing.T) {
	in := "zip,when\n01234,2024-01-02 03:04:05\n"
	dtypes := []core.Field{
		{Name: "zip", Type: core.FieldTypeString},
		{Name: "when", Type: core.FieldTypeTimestamp},
	}

	frame, err := Decode(CSV, strings.NewReader(in), ReadOptions{Dtypes: dtypes})
	require.NoError(t, err)
	assert.Equal(t, "01234", frame.Rows[0][0])
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), frame.Rows[0][1])
}

func TestDecodeCSVBadDtype(t *testing.T) {
	in := "n\nabc\n"
	_, err := Decode(CSV, strings.NewReader(in), ReadOptions{Dtypes: []core.Field{{Name: "n", Type: core.FieldTypeInt}}})
	assert.Error(t, err)
}

func TestEuroCSV(t *testing.T) {
	in := "name;weight\napple;1,5\npear;2\n"

	frame, err := Decode(EuroCSV, strings.NewReader(in), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1.5, frame.Rows[0][1])
	assert.Equal(t, 2.0, frame.Rows[1][1])

	var buf bytes.Buffer
	require.NoError(t, Encode(EuroCSV, &buf, frame, WriteOptions{}))
	assert.Equal(t, "name;weight\napple;1,5\npear;2\n", buf.String())
}

func TestEncodeCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(CSV, &buf, sampleFrame(t), WriteOptions{}))

	want := "id,score,label,ok,at\n" +
		"1,0.5,setosa,True,2024-03-01 12:30:00\n" +
		"2,1.25,versicolor,False,2024-03-01 13:30:00\n" +
		"3,,,True,2024-03-01 14:30:00\n"
	assert.Equal(t, want, buf.String())
}

func TestCSVSeparatorOverride(t *testing.T) {
	frame, err := Decode(CSV, strings.NewReader("a|b\n1|2\n"), ReadOptions{Separator: '|'})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, frame.Columns)
}

func TestBinaryRoundTrip(t *testing.T) {
	for _, f := range []Format{Avro, Arrow} {
		t.Run(string(f), func(t *testing.T) {
			want := sampleFrame(t)

			var buf bytes.Buffer
			require.NoError(t, Encode(f, &buf, want, WriteOptions{Name: "scores"}))

			got, err := Decode(f, &buf, ReadOptions{})
			require.NoError(t, err)
			assert.Equal(t, want.Columns, got.Columns)
			require.Equal(t, want.Len(), got.Len())
			for i := range want.Rows {
				for c := range want.Columns {
					if ts, ok := want.Rows[i][c].(time.Time); ok {
						assert.True(t, ts.Equal(got.Rows[i][c].(time.Time)))
						continue
					}
					assert.Equal(t, want.Rows[i][c], got.Rows[i][c], "row %d column %s", i, want.Columns[c])
				}
			}
		})
	}
}

func TestAvroColumnNames(t *testing.T) {
	frame := core.NewFrame("sepal length (cm)", "2nd")
	require.NoError(t, frame.Append(5.1, int64(2)))

	var buf bytes.Buffer
	require.NoError(t, Encode(Avro, &buf, frame, WriteOptions{Codec: "deflate"}))

	got, err := Decode(Avro, &buf, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, frame.Columns, got.Columns)
	assert.Equal(t, frame.Rows, got.Rows)
}

func TestJSONRoundTrip(t *testing.T) {
	frame := core.NewFrame("a", "b", "c")
	require.NoError(t, frame.Append(int64(1), 2.5, "x"))
	require.NoError(t, frame.Append(nil, 3.0, "y"))

	var buf bytes.Buffer
	require.NoError(t, Encode(JSON, &buf, frame, WriteOptions{}))

	got, err := Decode(JSON, &buf, ReadOptions{Dtypes: []core.Field{{Name: "b", Type: core.FieldTypeFloat}}})
	require.NoError(t, err)
	assert.Equal(t, frame.Columns, got.Columns)
	assert.Equal(t, frame.Rows, got.Rows)
}

func TestDtypes(t *testing.T) {
	fields := Fields(sampleFrame(t))
	assert.Equal(t, []core.Field{
		{Name: "id", Type: core.FieldTypeInt},
		{Name: "score", Type: core.FieldTypeFloat},
		{Name: "label", Type: core.FieldTypeString},
		{Name: "ok", Type: core.FieldTypeBool},
		{Name: "at", Type: core.FieldTypeTimestamp},
	}, fields)

	var buf bytes.Buffer
	require.NoError(t, WriteDtypes(&buf, fields))
	assert.Equal(t, "columns,dtypes\nid,int64\nscore,float64\nlabel,str\nok,bool\nat,datetime\n", buf.String())

	got, err := ReadDtypes(&buf)
	require.NoError(t, err)
	assert.Equal(t, fields, got)
}

func TestParseDtype(t *testing.T) {
	tests := []struct {
		name string
		want core.FieldType
	}{
		{"int64", core.FieldTypeInt},
		{"int32", core.FieldTypeInt},
		{"float32", core.FieldTypeFloat},
		{"object", core.FieldTypeString},
		{"bool", core.FieldTypeBool},
		{"datetime64[ns]", core.FieldTypeTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDtype(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDtype("complex128")
	assert.Error(t, err)
}

func TestFieldsMixedColumns(t *testing.T) {
	frame := core.NewFrame("n", "mixed", "empty")
	require.NoError(t, frame.Append(int64(1), "a", nil))
	require.NoError(t, frame.Append(2.5, int64(1), nil))

	assert.Equal(t, []core.Field{
		{Name: "n", Type: core.FieldTypeFloat},
		{Name: "mixed", Type: core.FieldTypeString},
		{Name: "empty", Type: core.FieldTypeString},
	}, Fields(frame))
}
