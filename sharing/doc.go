// Package sharing implements the secret-sharing codec of the vault: a cluster
// key that splits single values into one share per node, and the document
// transforms that apply it to whole records.
//
// # Cluster keys
//
// A ClusterKey is sized to the node count and supports one operation:
//
//   - Store with two or more nodes: n-of-n Shamir sharing
//     (hashicorp/vault/shamir). Every node must contribute its share to
//     reconstruct; no single node learns anything about the value.
//   - Store with a single node: XSalsa20-Poly1305 (nacl/secretbox) under a
//     random secret held only in memory.
//   - Sum: additive sharing modulo 2^32+15, so integer shares can be added
//     node-side.
//
// Strings and 32-bit signed integers are supported.
//
// # Documents
//
// Callers mark secret fields with {"$share": value}. Writing a record goes
// through three steps:
//
//	id, _ := sharing.AssignRecordID(record, sharing.IDPolicyRegenerate)
//	_ = sharing.LiftSecretFields(key, record) // {"$share": v} -> {"$allot": [s0, s1, s2]}
//	perNode, _ := sharing.Allot(records, key.Nodes()) // node i gets {"$share": s_i}
//
// Reading reverses the last two steps with Unify, given one shard per node.
//
// AssignRecordID's default policy replaces caller-supplied identifiers. The
// preserve policy keeps them; which of the two is correct for a deployment is
// a configuration choice, not a property of the codec.
package sharing
