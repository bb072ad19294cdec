package compression

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Algorithm
	}{
		{"data/iris.csv", None},
		{"data/iris.csv.gz", Gzip},
		{"data/iris.csv.GZ", Gzip},
		{"s3://bucket/model.bin.zst", Zstd},
		{"frames.arrow.lz4", LZ4},
		{"frames.s2", S2},
		{"frames.snappy", Snappy},
		{"noext", None},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, FromPath(tt.path))
		})
	}
}

func TestTrimExt(t *testing.T) {
	assert.Equal(t, "iris.csv", TrimExt("iris.csv.gz"))
	assert.Equal(t, "iris.csv", TrimExt("iris.csv"))
}

func TestResolve(t *testing.T) {
	alg, err := Resolve("", "iris.csv.gz")
	require.NoError(t, err)
	assert.Equal(t, Gzip, alg)

	alg, err = Resolve("zstd", "iris.csv.gz")
	require.NoError(t, err)
	assert.Equal(t, Zstd, alg)

	_, err = Resolve("brotli", "iris.csv")
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("sepal_length,sepal_width,petal_length,petal_width,species\n5.1,3.5,1.4,0.2,setosa\n", 200))

	for _, alg := range []Algorithm{None, Gzip, Zstd, S2, Snappy, LZ4} {
		t.Run(string(alg), func(t *testing.T) {
			compressed, err := Compress(alg, data)
			require.NoError(t, err)
			if alg != None {
				assert.Less(t, len(compressed), len(data))
			}

			plain, err := Decompress(alg, compressed)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, plain))
		})
	}
}

func TestStreamingLevels(t *testing.T) {
	data := []byte(strings.Repeat("launchpad ", 1000))

	for _, level := range []Level{Fastest, Default, Best} {
		var buf bytes.Buffer
		w, err := NewWriter(Gzip, &buf, level)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		plain, err := Decompress(Gzip, buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, data, plain)
	}
}
