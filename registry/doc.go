// Package registry resolves and authenticates the storage nodes of an
// organization.
//
// Initialization is a single, one-shot step:
//
//  1. The registration service is asked for the organization's nodes
//     (POST {"org_did": ...}, answered with {"nodes": [{"url", "did"}]}).
//  2. For every node an ES256K JWT is signed with the organization's secp256k1
//     key: iss is the organization DID, aud is the node DID, exp is one hour
//     from now.
//  3. A store cluster key is generated for exactly that many nodes.
//
// The resulting NodeSet is immutable. Tokens are not refreshed when they expire;
// requests then fail with 401 at the node and the caller must initialize again.
//
// Example:
//
//	nodes, err := registry.Initialize(ctx, registry.Config{
//	    OrgDID:       "did:nil:testnet:nillion1...",
//	    SecretKeyHex: os.Getenv("NILLION_SECRET_KEY"),
//	}, &registry.Client{})
package registry
