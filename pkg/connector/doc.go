// Package connector groups the datasource and datasink framework.
//
// # Architecture Overview
//
//   - core: the DataSource and DataSink interfaces, Frame and Spec.
//
//   - base: BaseConnector, embedded by every built-in connector. It tracks the
//     open state, traces operations and resolves relative paths.
//
//   - registry: maps type names such as "csv" or "dbms.postgres" to factories.
//     Plugins registered by name may add types or replace built-in ones.
//
//   - factory: validates the datasources and datasinks of a configuration and
//     builds them, resolving "dbms.<name>" references to the named connection.
//
//   - cache: wraps datasources with TTL and size bounded caching. Concurrent
//     fetches of the same parameters share one backend call.
//
//   - provision: the per phase view handed to model code.
//
//   - sources, destinations: the built-in connectors, registered with
//     sources.Register and destinations.Register.
//
//   - shared: code common to a source and its datasink (blob storage, SQL,
//     MongoDB).
//
// # Example Usage
//
//	reg := registry.New()
//	sources.Register(reg)
//	destinations.Register(reg)
//
//	conns, err := factory.New(ctx, reg, cfg)
//	if err != nil {
//		return err
//	}
//	defer conns.Close(ctx)
//
//	set := conns.Provision(provision.PhaseTrain)
//	src, err := set.Source("iris")
//	frame, err := src.GetFrame(ctx, nil)
//
// Errors are *errors.Error values. A type name nobody registered is a lookup
// error, invalid configuration a config error, and fetch failures keep the
// type assigned by the connector (connection, query, file, data).
package connector
