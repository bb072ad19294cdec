// Package gcs provides the Google Cloud Storage datasource, reading
// "gs://bucket/object" with application default credentials or the service
// account key named by the "credentials_file" option.
package gcs

import (
	"context"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/connector/shared/blob"
)

// Type is the connector type served by this package
const Type = "gcs"

// NewSource creates a GCS datasource
func NewSource(ctx context.Context, spec core.Spec) (core.DataSource, error) {
	layout, err := blob.LayoutFor(spec.Connector)
	if err != nil {
		return nil, err
	}
	client, err := blob.NewGCSClient(ctx, spec.Connector)
	if err != nil {
		return nil, err
	}
	src, err := blob.OpenSource(ctx, spec, layout, client)
	if err != nil {
		return nil, err
	}
	return src, nil
}
