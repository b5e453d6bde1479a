// Package interfaces defines the shared types, collaborator interfaces and error
// taxonomy of the nildb vault client, separating definitions from implementations.
//
// # Types
//
//   - NodeConfig / Node: a storage endpoint and its signed bearer token
//   - SchemaEntry: one element of the remote schema catalog
//   - Record: a document, with the $share / $allot / _id conventions
//
// # Collaborators
//
// RegistrationService: resolves the node list of an organization.
//
// NodeAPI: the per-node storage protocol (schemas, data create/read/delete).
//
// SchemaSynthesizer: a text model returning raw text for a prompt.
//
// # Errors
//
// Sentinel errors classify failures (ErrConfiguration, ErrRegistration, ErrCatalog,
// ErrNotFound, ErrReconstruction, ErrValidation). NodeError, ValidationError and
// PartialWriteError carry the details of fan-out failures and are matched with
// errors.As.
package interfaces
