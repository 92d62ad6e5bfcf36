/*
Package mock provides an in-memory store.Client for tests.

The mock implements the DynamoDB operations the store and session layers
use, including conditional puts, key-condition queries with paging, global
secondary indexes, and table lifecycle calls. Condition and filter
expressions are interpreted by a small evaluator covering the syntax the
expression builder emits.

Faults are injected through the OnRequest hook:

	client := mock.NewClient()
	client.OnRequest = func(op string) error {
	    if op == "PutItem" {
	        return &types.ProvisionedThroughputExceededException{}
	    }
	    return nil
	}

DescribeTable reports tables as active immediately, so the SDK table waiters
used during provisioning return on their first poll.
*/
package mock
