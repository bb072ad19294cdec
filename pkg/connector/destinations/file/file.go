// Package file provides the local file datasinks, mirroring the file
// datasources. Missing directories are created and existing files are
// replaced. When dtypes_path is configured the column types of every written
// frame are stored there, for use by a csv datasource's dtypes_path.
package file

import (
	"context"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/connector/shared/blob"
)

// NewSink creates a datasink for one of the file types
func NewSink(ctx context.Context, spec core.Spec) (core.DataSink, error) {
	layout, err := blob.FileLayout(spec.Connector.Type)
	if err != nil {
		return nil, err
	}
	sink, err := blob.OpenSink(ctx, spec, layout, blob.Local{BaseDir: spec.BaseDir})
	if err != nil {
		return nil, err
	}
	return sink, nil
}
