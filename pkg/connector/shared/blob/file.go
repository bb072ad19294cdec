package blob

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/launchpad/pkg/errors"
)

// File is an Object stored on the local filesystem
type File struct {
	path string
}

// NewFile returns the local file at path
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the file's path
func (f *File) Path() string {
	return f.path
}

// Read returns the file's contents
func (f *File) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read file").WithDetail("path", f.path)
	}
	return data, nil
}

// Write replaces the file's contents, creating missing parent directories
func (f *File) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create directory").WithDetail("path", f.path)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil { //nolint:gosec // data files are shared with other tools
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write file").WithDetail("path", f.path)
	}
	return nil
}

// Stat checks that the file exists
func (f *File) Stat(ctx context.Context) error {
	if _, err := os.Stat(f.path); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "file not accessible").WithDetail("path", f.path)
	}
	return nil
}

func (f *File) String() string {
	return f.path
}
