package cryptoutils

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// DIDPrefix is the method prefix of nildb decentralized identifiers.
const DIDPrefix = "did:nil:"

// ParseSecretKeyHex decodes a hex-encoded secp256k1 private key. A leading 0x is accepted.
func ParseSecretKeyHex(secretKeyHex string) (*ecdsa.PrivateKey, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(secretKeyHex), "0x")
	if clean == "" {
		return nil, errors.New("empty secret key")
	}
	key, err := crypto.HexToECDSA(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid secp256k1 secret key: %w", err)
	}
	return key, nil
}

// SecretKeyHex encodes a private key as 64 hex characters with no prefix.
func SecretKeyHex(key *ecdsa.PrivateKey) string {
	return hex.EncodeToString(crypto.FromECDSA(key))
}

// PublicKeyHex returns the compressed (33 byte) public key in hex.
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return hex.EncodeToString(crypto.CompressPubkey(pub))
}

// ParsePublicKeyHex accepts a compressed or uncompressed secp256k1 public key in hex.
func ParsePublicKeyHex(pubHex string) (*ecdsa.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(pubHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid public key hex: %w", err)
	}
	switch len(raw) {
	case 33:
		return crypto.DecompressPubkey(raw)
	case 65:
		return crypto.UnmarshalPubkey(raw)
	default:
		return nil, fmt.Errorf("invalid public key length: %d", len(raw))
	}
}

// NilDID derives the did:nil identifier of a public key.
func NilDID(pub *ecdsa.PublicKey) string {
	return DIDPrefix + PublicKeyHex(pub)
}
