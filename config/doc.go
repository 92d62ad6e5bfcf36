/*
Package config wires modelstore to its environment: client construction,
connection settings, and declarative table manifests.

Settings load from the process environment (with optional .env support) or
from YAML:

	cfg := config.FromEnv()
	client, err := config.NewClient(ctx, cfg)

A manifest declares tables for session provisioning without writing model
types, which is what the command-line tool uses:

	namespace: test_
	tables:
	  - name: companies
	    hashKey: {name: id}
	    indexes:
	      - name: name-index
	        hashKey: {name: name}
	  - name: employees
	    hashKey: {name: company_id}
	    rangeKey: {name: id}
*/
package config
