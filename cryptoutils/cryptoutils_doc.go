// Package cryptoutils provides the secp256k1 key handling and node token
// signing used to authenticate against nildb storage nodes.
//
// # Keys
//
// Organization secret keys are hex-encoded secp256k1 scalars, parsed with
// go-ethereum's crypto package. Public keys are exchanged in compressed hex
// form, and an organization DID is "did:nil:" followed by that hex.
//
// # Node tokens
//
// Every node receives its own JWT:
//
//	{"iss": <org did>, "aud": <node did>, "iat": now, "exp": now + 1h}
//
// signed with ES256K. The signing method is registered with golang-jwt under
// the "ES256K" algorithm name at package init.
//
//	key, _ := cryptoutils.ParseSecretKeyHex(secretHex)
//	bearer, err := cryptoutils.IssueNodeToken(key, orgDID, node.DID, time.Now(), time.Hour)
//
// Nodes verify with VerifyNodeToken, resolving the issuer to a public key.
package cryptoutils
