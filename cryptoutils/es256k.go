package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
)

// SigningMethodES256K implements ECDSA over secp256k1 with SHA-256 (RFC 8812).
// Signatures are the 64-byte R||S concatenation; the recovery byte produced by
// go-ethereum is dropped.
type SigningMethodES256K struct{}

// ES256K is the registered instance, also reachable through jwt.GetSigningMethod("ES256K").
var ES256K = &SigningMethodES256K{}

func init() {
	jwt.RegisterSigningMethod(ES256K.Alg(), func() jwt.SigningMethod {
		return ES256K
	})
}

func (m *SigningMethodES256K) Alg() string {
	return "ES256K"
}

// Sign expects a *ecdsa.PrivateKey on the secp256k1 curve.
func (m *SigningMethodES256K) Sign(signingString string, key interface{}) ([]byte, error) {
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, jwt.ErrInvalidKeyType
	}

	digest := sha256.Sum256([]byte(signingString))
	sig, err := crypto.Sign(digest[:], priv)
	if err != nil {
		return nil, err
	}
	return sig[:64], nil
}

// Verify accepts a *ecdsa.PublicKey or a raw compressed/uncompressed public key.
// High-S signatures are rejected.
func (m *SigningMethodES256K) Verify(signingString string, sig []byte, key interface{}) error {
	var pub []byte
	switch k := key.(type) {
	case *ecdsa.PublicKey:
		pub = crypto.CompressPubkey(k)
	case []byte:
		pub = k
	default:
		return jwt.ErrInvalidKeyType
	}

	if len(sig) != 64 {
		return jwt.ErrECDSAVerification
	}

	digest := sha256.Sum256([]byte(signingString))
	if !crypto.VerifySignature(pub, digest[:], sig) {
		return jwt.ErrECDSAVerification
	}
	return nil
}
