/*
Package httpserver runs simulated nildb storage nodes and a registration
service, for local development and for end-to-end tests of the vault client.

A NodeHandler serves the storage protocol of one node under /api/v1:

	GET  /api/v1/schemas      schemas owned by the requesting organization
	POST /api/v1/schemas      register a schema document {_id, name, keys, owner, schema}
	POST /api/v1/data/create  {schema, data}, data validated against the schema
	POST /api/v1/data/read    {schema, filter}
	POST /api/v1/data/delete  {schema, filter}

Every request needs an ES256K bearer token whose audience is the node DID and
whose issuer was registered with RegisterOrg. Responses use the envelope
{"data": ..., "errors": [...]}; anything but 200 with an empty errors list is a
failure.

A RegistrationHandler answers POST /api/config with the configured node list.

Server wraps handlers with request logging and metrics, and adds /livez,
/readyz, /drain and /undrain, an optional pprof mount and a metrics server.
*/
package httpserver
