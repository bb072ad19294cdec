// Package file provides the local file datasources: csv, euro_csv, avro_file,
// arrow_file and json_file read frames, text_file and binary_file read raw
// data. Paths are resolved relative to the configuration file and files with a
// compression extension such as ".gz" are decompressed transparently.
//
// Example configuration:
//
//	datasources:
//	  iris:
//	    type: csv
//	    path: ./data/iris.csv
//	    dtypes_path: ./data/iris.dtypes
//	    expires: 3600
//	    tags: [train, test]
package file

import (
	"context"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/connector/shared/blob"
)

// NewSource creates a datasource for one of the file types
func NewSource(ctx context.Context, spec core.Spec) (core.DataSource, error) {
	layout, err := blob.FileLayout(spec.Connector.Type)
	if err != nil {
		return nil, err
	}
	src, err := blob.OpenSource(ctx, spec, layout, blob.Local{BaseDir: spec.BaseDir})
	if err != nil {
		return nil, err
	}
	return src, nil
}
