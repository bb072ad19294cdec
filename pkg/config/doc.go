// Package config provides configuration loading and validation for Launchpad.
//
// A single YAML file describes everything environment specific about a model:
//
//	plugins: [my_plugin]          # optional, applied after built-in connectors
//	dbms:                         # optional, named shared connections
//	  warehouse:
//	    type: postgres
//	    connection_string: postgres://${DB_HOST}/analytics
//	    user_var: WAREHOUSE_USER
//	    password_var: WAREHOUSE_PW
//	datasources:
//	  petals:
//	    type: csv
//	    path: ./iris_train.csv
//	    expires: -1               # -1 never expires, 0 no caching, >0 TTL in seconds
//	    tags: [train, test]
//	  customers:
//	    type: dbms.warehouse
//	    query: SELECT * FROM customers WHERE id = :id
//	    expires: 300
//	    cache_size: 64
//	    tags: [predict]
//	datasinks:
//	  scores:
//	    type: csv
//	    path: ./out/scores.csv
//	    expires: 0
//	    tags: [predict]
//	model_store:
//	  location: ./model_store
//	model:
//	  name: iris
//	  version: 0.0.1
//	  module: iris               # name the model maker was registered under
//	api:
//	  name: iris
//	  resource: varieties
//
// # Environment Variable Substitution
//
// ${VAR_NAME} occurrences are replaced with the value of the environment
// variable before parsing. Unset variables become empty strings.
//
// # Includes
//
// A scalar tagged !include is replaced by the parsed contents of the named
// file, resolved relative to the including file:
//
//	datasources: !include datasources.yml
//
// # Credentials
//
// Connection blocks name environment variables instead of holding secrets.
// user_var and password_var default to <CONNECTION>_USER and <CONNECTION>_PW.
// Option keys ending in _var are replaced by the named variable's value with
// the suffix removed.
package config
