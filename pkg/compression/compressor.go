// Package compression provides transparent compression for file and object
// storage connectors.
//
// # Overview
//
// The algorithm is chosen from the path extension unless the connector sets
// the "compression" option explicitly:
//
//	.gz        gzip
//	.zst       zstd
//	.s2        s2
//	.snappy    snappy (framed)
//	.lz4       lz4
//
// # Basic Usage
//
//	alg := compression.FromPath("data/iris.csv.gz")
//	plain, err := compression.Decompress(alg, compressed)
//
//	w, err := compression.NewWriter(alg, file, compression.Default)
//	defer w.Close()
package compression

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents framed snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
)

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio
	Fastest Level = 1
	// Default balances speed and compression
	Default Level = 5
	// Best maximizes compression ratio
	Best Level = 9
)

var extensions = map[string]Algorithm{
	".gz":     Gzip,
	".gzip":   Gzip,
	".zst":    Zstd,
	".s2":     S2,
	".snappy": Snappy,
	".lz4":    LZ4,
}

// FromPath returns the algorithm implied by the extension of p, or None
func FromPath(p string) Algorithm {
	if alg, ok := extensions[strings.ToLower(path.Ext(p))]; ok {
		return alg
	}
	return None
}

// Parse converts an algorithm name into an Algorithm
func Parse(name string) (Algorithm, error) {
	switch alg := Algorithm(strings.ToLower(name)); alg {
	case None, Gzip, Snappy, LZ4, Zstd, S2:
		return alg, nil
	case "":
		return None, nil
	}
	return "", fmt.Errorf("unsupported compression algorithm: %s", name)
}

// Resolve returns the explicitly configured algorithm, falling back to the path extension
func Resolve(option, p string) (Algorithm, error) {
	if option != "" {
		return Parse(option)
	}
	return FromPath(p), nil
}

// TrimExt strips the compression extension from p, e.g. "iris.csv.gz" becomes "iris.csv"
func TrimExt(p string) string {
	if FromPath(p) == None {
		return p
	}
	return strings.TrimSuffix(p, path.Ext(p))
}

// NewReader returns a reader decompressing r
func NewReader(alg Algorithm, r io.Reader) (io.ReadCloser, error) {
	switch alg {
	case None, "":
		return io.NopCloser(r), nil
	case Gzip:
		return gzip.NewReader(r)
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", alg)
	}
}

// NewWriter returns a writer compressing into w. Close flushes the compressed
// stream but does not close w.
func NewWriter(alg Algorithm, w io.Writer, level Level) (io.WriteCloser, error) {
	switch alg {
	case None, "":
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriterLevel(w, mapGzipLevel(level))
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(mapZstdLevel(level)))
	case S2:
		return s2.NewWriter(w), nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case LZ4:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, err
		}
		return lw, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", alg)
	}
}

// Compress compresses data in memory
func Compress(alg Algorithm, data []byte) ([]byte, error) {
	if alg == None || alg == "" {
		return data, nil
	}
	var buf bytes.Buffer
	w, err := NewWriter(alg, &buf, Default)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress decompresses data in memory
func Decompress(alg Algorithm, data []byte) ([]byte, error) {
	if alg == None || alg == "" {
		return data, nil
	}
	r, err := NewReader(alg, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := io.ReadAll(r) //nolint:gosec // G110: inputs are operator-configured data files
	if err != nil {
		return nil, err
	}
	return out, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
