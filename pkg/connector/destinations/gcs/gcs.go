// Package gcs provides the Google Cloud Storage datasink
package gcs

import (
	"context"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/connector/shared/blob"
)

// Type is the connector type served by this package
const Type = "gcs"

// NewSink creates a GCS datasink
func NewSink(ctx context.Context, spec core.Spec) (core.DataSink, error) {
	layout, err := blob.LayoutFor(spec.Connector)
	if err != nil {
		return nil, err
	}
	client, err := blob.NewGCSClient(ctx, spec.Connector)
	if err != nil {
		return nil, err
	}
	sink, err := blob.OpenSink(ctx, spec, layout, client)
	if err != nil {
		return nil, err
	}
	return sink, nil
}
