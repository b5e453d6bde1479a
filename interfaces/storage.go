package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrSchemaExists is returned when a schema id is registered twice on one node.
	ErrSchemaExists = errors.New("schema already exists")

	// ErrDuplicateRecord is returned when an insert reuses an _id of the schema.
	ErrDuplicateRecord = errors.New("duplicate record id")
)

// ShardStore persists the schemas and record shards held by a single node.
//
// Filters are MongoDB-style equality matches over top-level fields, with
// optional {"$eq": v}, {"$ne": v} and {"$in": [...]} operators. An empty or
// nil filter matches every record.
type ShardStore interface {
	// PutSchema registers a schema. Returns ErrSchemaExists if the id is taken.
	PutSchema(ctx context.Context, entry SchemaEntry) error

	// GetSchema returns ErrNotFound if the schema is unknown.
	GetSchema(ctx context.Context, schemaID string) (SchemaEntry, error)

	// ListSchemas returns schemas in registration order.
	ListSchemas(ctx context.Context) ([]SchemaEntry, error)

	// InsertRecords stores all records or none. Every record must carry a
	// string _id not yet used in the schema.
	InsertRecords(ctx context.Context, schemaID string, records []Record) error

	// FindRecords returns the matching records in insertion order.
	FindRecords(ctx context.Context, schemaID string, filter map[string]any) ([]Record, error)

	// DeleteRecords removes the matching records and returns how many were removed.
	DeleteRecords(ctx context.Context, schemaID string, filter map[string]any) (int, error)

	// Name identifies the store in logs.
	Name() string

	Close() error
}
