// Package s3 provides the Amazon S3 datasink. Each write replaces the object
// at "s3://bucket/key" using a multipart upload for large payloads.
package s3

import (
	"context"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/connector/shared/blob"
)

// Type is the connector type served by this package
const Type = "s3"

// NewSink creates an S3 datasink
func NewSink(ctx context.Context, spec core.Spec) (core.DataSink, error) {
	layout, err := blob.LayoutFor(spec.Connector)
	if err != nil {
		return nil, err
	}
	client, err := blob.NewS3Client(ctx, spec.Connector)
	if err != nil {
		return nil, err
	}
	sink, err := blob.OpenSink(ctx, spec, layout, client)
	if err != nil {
		return nil, err
	}
	return sink, nil
}
