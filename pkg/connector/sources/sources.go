// Package sources registers the built-in datasource implementations
package sources

import (
	"github.com/ajitpratap0/launchpad/pkg/connector/registry"
	"github.com/ajitpratap0/launchpad/pkg/connector/shared/blob"
	"github.com/ajitpratap0/launchpad/pkg/connector/sources/dbms"
	"github.com/ajitpratap0/launchpad/pkg/connector/sources/file"
	"github.com/ajitpratap0/launchpad/pkg/connector/sources/gcs"
	"github.com/ajitpratap0/launchpad/pkg/connector/sources/mongodb"
	"github.com/ajitpratap0/launchpad/pkg/connector/sources/s3"
)

// Register adds every built-in datasource type to r
func Register(r *registry.Registry) {
	for _, typ := range blob.FileTypeNames {
		r.RegisterSource(typ, file.NewSource)
	}
	r.RegisterSource(s3.Type, s3.NewSource)
	r.RegisterSource(gcs.Type, gcs.NewSource)
	for _, typ := range dbms.Types() {
		r.RegisterSource(typ, dbms.NewSource)
	}
	r.RegisterSource(mongodb.Type, mongodb.NewSource)
}
