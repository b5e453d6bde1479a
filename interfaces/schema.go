package interfaces

import "context"

// Record is one document stored in the vault. Nested mappings are plain
// map[string]any values so JSON-decoded input can be used without conversion.
type Record = map[string]any

// Document conventions for secret fields.
const (
	// ShareKey marks a field for secret sharing on input, and carries a single
	// node's share in stored shards.
	ShareKey = "$share"

	// AllotKey carries the full per-node share list between lifting and allotment.
	AllotKey = "$allot"

	// IDKey is the record identifier field, always a UUID string.
	IDKey = "_id"
)

// SchemaEntry is one element of the schema catalog as returned by GET /api/v1/schemas.
type SchemaEntry struct {
	ID     string         `json:"_id"`
	Name   string         `json:"name"`
	Keys   []string       `json:"keys,omitempty"`
	Owner  string         `json:"owner,omitempty"`
	Schema map[string]any `json:"schema"`
}

// SchemaSynthesizer is the narrow adapter around a non-deterministic text model.
// Implementations return the model's raw text; parsing and sanitization happen
// at the call site.
type SchemaSynthesizer interface {
	Infer(ctx context.Context, prompt string) (string, error)
}
