// Package destinations registers the built-in datasink implementations
package destinations

import (
	"github.com/ajitpratap0/launchpad/pkg/connector/destinations/dbms"
	"github.com/ajitpratap0/launchpad/pkg/connector/destinations/file"
	"github.com/ajitpratap0/launchpad/pkg/connector/destinations/gcs"
	"github.com/ajitpratap0/launchpad/pkg/connector/destinations/kafka"
	"github.com/ajitpratap0/launchpad/pkg/connector/destinations/mongodb"
	"github.com/ajitpratap0/launchpad/pkg/connector/destinations/s3"
	"github.com/ajitpratap0/launchpad/pkg/connector/registry"
	"github.com/ajitpratap0/launchpad/pkg/connector/shared/blob"
)

// Register adds every built-in datasink type to r
func Register(r *registry.Registry) {
	for _, typ := range blob.FileTypeNames {
		r.RegisterSink(typ, file.NewSink)
	}
	r.RegisterSink(s3.Type, s3.NewSink)
	r.RegisterSink(gcs.Type, gcs.NewSink)
	for _, typ := range dbms.Types() {
		r.RegisterSink(typ, dbms.NewSink)
	}
	r.RegisterSink(mongodb.Type, mongodb.NewSink)
	r.RegisterSink(kafka.Type, kafka.NewSink)
}
