// Package launchpad documents the launchpad module: a runtime that trains,
// tests and serves models against datasources and datasinks declared in a YAML
// configuration file.
//
// # Architecture
//
// Model code never opens files or database connections itself. It receives a
// provision.Set holding the connectors tagged for the running phase and reads
// or writes core.Frame values through them:
//
//	config.Load        YAML with !include and ${VAR} substitution
//	registry           connector type name -> factory, extended by plugins
//	factory            builds every configured connector once, wraps sources in caches
//	cache              TTL and size bounded memoization per parameter set
//	provision          per phase view (train, test, predict) over the connectors
//	launchpad.Runner   runs the phases of the model.Maker named by model.module
//	modelstore         versioned model files with metadata and backups
//	internal/api       HTTP prediction resource with config reload
//
// # Connector Types
//
//	csv, euro_csv, avro_file, arrow_file, json_file, text_file, binary_file
//	s3, gcs                                   object storage, any file format
//	dbms.<name>                               sql, postgres, mysql, sqlite, snowflake, mongodb
//	kafka                                     datasink only
//
// # Quick Start
//
// A model is a model.Maker registered under the name used by model.module:
//
//	func init() {
//		model.Register("addition", addition.Maker{})
//	}
//
// With a configuration such as
//
//	model_store:
//	  location: ./models
//	model:
//	  name: addition
//	  version: 1.0.0
//	  module: addition
//	datasources:
//	  samples:
//	    type: csv
//	    path: ./data/samples.csv
//	    expires: -1
//	    tags: [train, test]
//
// the command line trains, predicts and serves:
//
//	launchpad -c launchpad.yml -t
//	launchpad -c launchpad.yml -p a=1 b=2
//	launchpad -c launchpad.yml -a --addr :8080
//
// See examples/addition for a complete model.
package launchpad
