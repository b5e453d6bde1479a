package interfaces

import (
	"context"
)

// NodeConfig is one storage endpoint as published by the registration service.
type NodeConfig struct {
	// URL is the base HTTP endpoint of the node, without a trailing slash.
	URL string `json:"url"`

	// DID is the node's decentralized identifier, used as the JWT audience.
	DID string `json:"did"`
}

// Node is a NodeConfig bound to a signed, time-limited bearer token.
// The bearer is intentionally excluded from JSON encoding.
type Node struct {
	NodeConfig

	// Bearer is the ES256K JWT presented in the Authorization header.
	Bearer string `json:"-"`
}

// RegistrationService resolves the set of storage nodes for an organization.
type RegistrationService interface {
	// FetchNodes returns the ordered node list configured for orgDID.
	FetchNodes(ctx context.Context, orgDID string) ([]NodeConfig, error)
}

// NodeAPI is the per-node storage protocol. Every implementation talks to exactly
// one node and authenticates with that node's bearer.
type NodeAPI interface {
	// ListSchemas issues GET /api/v1/schemas.
	ListSchemas(ctx context.Context) ([]SchemaEntry, error)

	// CreateSchema issues POST /api/v1/schemas with the full schema document.
	CreateSchema(ctx context.Context, document map[string]any) error

	// CreateData issues POST /api/v1/data/create for one node's shards.
	CreateData(ctx context.Context, schemaID string, data []Record) error

	// ReadData issues POST /api/v1/data/read and returns the node's shards.
	ReadData(ctx context.Context, schemaID string, filter map[string]any) ([]Record, error)

	// DeleteData issues POST /api/v1/data/delete.
	DeleteData(ctx context.Context, schemaID string, filter map[string]any) error
}

// NodeAPIFactory binds a NodeAPI to one node.
type NodeAPIFactory func(index int, node Node) NodeAPI
