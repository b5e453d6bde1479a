// Package vault is the client of a nildb SecretVault cluster.
//
// A VaultClient is created from an initialized registry.NodeSet and offers
// the catalog, write and read paths:
//
//   - FetchSchemas and FindSchema read the schema catalog from node 0.
//   - Upload validates, secret-shares and writes records to every node.
//   - Download reads every node's shards and reassembles the records.
//   - LookupSchema and CreateSchema use a text model to pick or mint a schema.
//
// All fan-out is sequential in node order and stops at the first failure.
// Writes are not transactional: when node k fails after nodes 0..k-1 accepted
// their shards, Upload reports a *interfaces.PartialWriteError and leaves the
// orphaned shards in place. Compensate removes them on request.
//
// Start-to-finish usage:
//
//	nodes, _ := registry.Initialize(ctx, cfg.Registry(), &registry.Client{URL: cfg.RegistrationURL})
//	v, _ := vault.New(nodes, vault.Config{Log: log})
//	ids, err := v.Upload(ctx, schemaID, []interfaces.Record{
//	    {"username": "alice", "password": map[string]any{"$share": "secret123"}},
//	})
//	records, err := v.Download(ctx, schemaID)
package vault
