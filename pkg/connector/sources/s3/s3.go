// Package s3 provides the Amazon S3 datasource. The object is read from
// "s3://bucket/key"; its format comes from the "format" option or the key's
// extension.
//
// Example configuration:
//
//	datasources:
//	  scores:
//	    type: s3
//	    path: s3://analytics/scores.csv.gz
//	    expires: 600
//	    tags: predict
//	    options:
//	      region: eu-west-1
package s3

import (
	"context"

	"github.com/ajitpratap0/launchpad/pkg/connector/core"
	"github.com/ajitpratap0/launchpad/pkg/connector/shared/blob"
)

// Type is the connector type served by this package
const Type = "s3"

// NewSource creates an S3 datasource
func NewSource(ctx context.Context, spec core.Spec) (core.DataSource, error) {
	layout, err := blob.LayoutFor(spec.Connector)
	if err != nil {
		return nil, err
	}
	client, err := blob.NewS3Client(ctx, spec.Connector)
	if err != nil {
		return nil, err
	}
	src, err := blob.OpenSource(ctx, spec, layout, client)
	if err != nil {
		return nil, err
	}
	return src, nil
}
