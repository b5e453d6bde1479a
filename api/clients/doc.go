/*
Package clients implements the per-node storage protocol of nildb.

Every NodeClient is bound to one node and presents that node's bearer token
on each request. All endpoints answer with the same envelope:

	{"data": ..., "errors": []}

A request succeeds only when the status is 200 and errors is empty. Any other
outcome, including transport failures, is returned as *interfaces.NodeError,
which carries the node index, endpoint, status code and the node's error list.

# Endpoints

  - GET  /api/v1/schemas      list the organization's schemas
  - POST /api/v1/schemas      create a schema document
  - POST /api/v1/data/create  {schema, data} store one node's shards
  - POST /api/v1/data/read    {schema, filter} read shards
  - POST /api/v1/data/delete  {schema, filter} delete shards

Each request is counted in metrics.NodeRequests and timed in
metrics.NodeRequestDuration.
*/
package clients
