// Package storage provides the shard stores behind simulated nildb nodes.
//
// A store holds one node's view of the vault: the schema catalog and, per
// schema, the record shards in insertion order. Secret fields inside shards
// are opaque {"$share": ...} values; the store never sees plaintext secrets.
//
// # Store URI Format
//
//   - memory://
//   - sqlite:///var/lib/nodesim/node-{node}.db
//   - sqlite://:memory:
//
// Several URIs can be combined with StoreFactory.CreateMultiStore, which
// mirrors writes to every store and reads from the first one that answers.
//
// # Filters
//
// FindRecords and DeleteRecords accept MongoDB-style filters over top-level
// fields:
//
//	{}                                    every record
//	{"username": "alice"}                 equality
//	{"_id": {"$in": ["a1…", "b2…"]}}      membership
//	{"status": {"$ne": "archived"}}       inequality
package storage
