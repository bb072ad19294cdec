package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/launchpad/pkg/compression"
	"github.com/ajitpratap0/launchpad/pkg/config"
	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/errors"
	"github.com/ajitpratap0/launchpad/pkg/formats"
)

func spec(name, typ, path string, options map[string]interface{}) core.Spec {
	return core.Spec{Connector: config.ConnectorConfig{Name: name, Type: typ, Path: path, Options: options}}
}

func irisFrame(t *testing.T) *core.Frame {
	t.Helper()
	frame := core.NewFrame("sepal_length", "species")
	require.NoError(t, frame.Append(5.1, "setosa"))
	require.NoError(t, frame.Append(7.0, "versicolor"))
	return frame
}

func TestLayoutFor(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		options map[string]interface{}
		want    Layout
	}{
		{"csv extension", "s3://bucket/iris.csv", nil, Layout{Format: formats.CSV}},
		{"compressed csv", "s3://bucket/iris.csv.gz", nil, Layout{Format: formats.CSV}},
		{"avro", "gs://bucket/iris.avro", nil, Layout{Format: formats.Avro}},
		{"text", "gs://bucket/notes.txt", nil, Layout{Text: true}},
		{"unknown is binary", "gs://bucket/model.bin", nil, Layout{}},
		{"format option wins", "s3://bucket/data", map[string]interface{}{"format": "euro_csv"}, Layout{Format: formats.EuroCSV}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LayoutFor(config.ConnectorConfig{Name: "x", Path: tt.path, Options: tt.options})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := LayoutFor(config.ConnectorConfig{Name: "x", Options: map[string]interface{}{"format": "parquet"}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestFrameRoundTripWithDtypes(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "out", "iris.csv")
	dtypesPath := filepath.Join(dir, "out", "iris.dtypes")
	ctx := context.Background()

	sink, err := NewSink(spec("iris_out", TypeCSV, dataPath, nil), FileTypes[TypeCSV], NewFile(dataPath), NewFile(dtypesPath))
	require.NoError(t, err)
	defer sink.Close(ctx)
	require.NoError(t, sink.PutFrame(ctx, irisFrame(t), nil))

	dtypes, err := os.ReadFile(dtypesPath)
	require.NoError(t, err)
	assert.Equal(t, "columns,dtypes\nsepal_length,float64\nspecies,str\n", string(dtypes))

	src, err := NewSource(spec("iris", TypeCSV, dataPath, nil), FileTypes[TypeCSV], NewFile(dataPath), NewFile(dtypesPath))
	require.NoError(t, err)
	defer src.Close(ctx)

	frame, err := src.GetFrame(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, irisFrame(t).Rows, frame.Rows)
}

func TestCompressedByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iris.csv.gz")
	ctx := context.Background()

	sink, err := NewSink(spec("out", TypeCSV, path, nil), FileTypes[TypeCSV], NewFile(path), nil)
	require.NoError(t, err)
	require.NoError(t, sink.PutFrame(ctx, irisFrame(t), nil))

	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	plain, err := compression.Decompress(compression.Gzip, stored)
	require.NoError(t, err)
	assert.Equal(t, "sepal_length,species\n5.1,setosa\n7,versicolor\n", string(plain))

	src, err := NewSource(spec("in", TypeCSV, path, nil), FileTypes[TypeCSV], NewFile(path), nil)
	require.NoError(t, err)
	frame, err := src.GetFrame(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Len())
}

func TestRawText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes", "readme.txt")
	ctx := context.Background()

	sink, err := NewSink(spec("notes_out", TypeTextFile, path, nil), FileTypes[TypeTextFile], NewFile(path), nil)
	require.NoError(t, err)
	require.NoError(t, sink.PutRaw(ctx, []byte("héllo"), nil))
	assert.Error(t, sink.PutRaw(ctx, []byte{0xff, 0xfe}, nil))

	src, err := NewSource(spec("notes", TypeTextFile, path, nil), FileTypes[TypeTextFile], NewFile(path), nil)
	require.NoError(t, err)
	data, err := src.GetRaw(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "héllo", string(data))
}

func TestCapabilities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0o644))
	ctx := context.Background()

	csvSrc, err := NewSource(spec("c", TypeCSV, path, nil), FileTypes[TypeCSV], NewFile(path), nil)
	require.NoError(t, err)
	binSrc, err := NewSource(spec("b", TypeBinaryFile, path, nil), FileTypes[TypeBinaryFile], NewFile(path), nil)
	require.NoError(t, err)
	binSink, err := NewSink(spec("bs", TypeBinaryFile, path, nil), FileTypes[TypeBinaryFile], NewFile(path), nil)
	require.NoError(t, err)

	_, err = csvSrc.GetRaw(ctx, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))

	_, err = binSrc.GetFrame(ctx, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))

	_, err = csvSrc.GetFrame(ctx, core.Params{"id": 1})
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))

	err = binSink.PutFrame(ctx, irisFrame(t), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))
}

func TestMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")
	src, err := NewSource(spec("m", TypeCSV, path, nil), FileTypes[TypeCSV], NewFile(path), nil)
	require.NoError(t, err)

	_, err = src.GetFrame(context.Background(), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
	assert.Error(t, src.Health(context.Background()))
}

func TestClosedSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	src, err := NewSource(spec("a", TypeBinaryFile, path, nil), FileTypes[TypeBinaryFile], NewFile(path), nil)
	require.NoError(t, err)
	require.NoError(t, src.Close(context.Background()))

	_, err = src.GetRaw(context.Background(), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}

func TestInvalidOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.csv")
	_, err := NewSource(spec("a", TypeCSV, path, map[string]interface{}{"separator": "||"}), FileTypes[TypeCSV], NewFile(path), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = NewSink(spec("a", TypeCSV, path, map[string]interface{}{"compression": "brotli"}), FileTypes[TypeCSV], NewFile(path), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		location string
		bucket   string
		key      string
		ok       bool
	}{
		{"s3://analytics/scores/today.csv", "analytics", "scores/today.csv", true},
		{"S3://analytics/a", "analytics", "a", true},
		{"gs://analytics/a", "", "", false},
		{"s3://analytics", "", "", false},
		{"s3:///key", "", "", false},
		{"/local/path", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			bucket, key, err := ParseLocation(tt.location, "s3")
			if !tt.ok {
				assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, _, err := Open(Local{}, spec("nopath", TypeCSV, "", nil))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestLocalRejectsURLs(t *testing.T) {
	_, err := Local{}.Open("s3://bucket/key")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestFileLayout(t *testing.T) {
	l, err := FileLayout(TypeEuroCSV)
	require.NoError(t, err)
	assert.Equal(t, formats.EuroCSV, l.Format)

	_, err = FileLayout("s3")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
