package cryptoutils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultNodeTokenTTL is the lifetime of a node bearer token.
const DefaultNodeTokenTTL = time.Hour

// nodeClaims serializes the audience as a single string, the form nodes expect.
type nodeClaims struct {
	jwt.RegisteredClaims
	Audience string `json:"aud"`
}

// IssueNodeToken signs {iss: issuer, aud: audience, iat: now, exp: now+ttl} with ES256K.
func IssueNodeToken(key *ecdsa.PrivateKey, issuer, audience string, now time.Time, ttl time.Duration) (string, error) {
	if key == nil {
		return "", errors.New("nil signing key")
	}
	if ttl <= 0 {
		ttl = DefaultNodeTokenTTL
	}

	claims := nodeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Audience: audience,
	}

	token, err := jwt.NewWithClaims(ES256K, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign node token: %w", err)
	}
	return token, nil
}

// IssuerKeyFunc maps a token issuer to the public key that must have signed it.
type IssuerKeyFunc func(issuer string) (*ecdsa.PublicKey, error)

// VerifyNodeToken checks signature, audience and expiry of a node bearer token
// and returns its claims.
func VerifyNodeToken(tokenString, audience string, now time.Time, keys IssuerKeyFunc) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		issuer, err := token.Claims.GetIssuer()
		if err != nil {
			return nil, err
		}
		return keys(issuer)
	},
		jwt.WithValidMethods([]string{ES256K.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
