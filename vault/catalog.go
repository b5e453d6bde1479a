package vault

import (
	"context"
	"fmt"

	"github.com/ruteri/nildb-agentkit/interfaces"
)

// FetchSchemas lists the schemas of node 0. An empty catalog is an error.
func (v *VaultClient) FetchSchemas(ctx context.Context) ([]interfaces.SchemaEntry, error) {
	schemas, err := v.apis[0].ListSchemas(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrCatalog, err)
	}
	if len(schemas) == 0 {
		return nil, fmt.Errorf("%w: failed to fetch schemas from nildb: catalog is empty", interfaces.ErrCatalog)
	}
	return schemas, nil
}

// FindSchema returns the JSON Schema of the catalog entry with the given id.
// A nil list is fetched first.
func (v *VaultClient) FindSchema(ctx context.Context, schemaID string, list []interfaces.SchemaEntry) (map[string]any, error) {
	if list == nil {
		var err error
		list, err = v.FetchSchemas(ctx)
		if err != nil {
			return nil, err
		}
	}
	for _, entry := range list {
		if entry.ID == schemaID {
			if entry.Schema == nil {
				return nil, fmt.Errorf("%w: schema %s has no definition", interfaces.ErrCatalog, schemaID)
			}
			return entry.Schema, nil
		}
	}
	return nil, fmt.Errorf("%w: schema %q", interfaces.ErrNotFound, schemaID)
}
