package sharing

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/hashicorp/vault/shamir"
	"github.com/ruteri/nildb-agentkit/interfaces"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	secretSize = 32
	nonceSize  = 24

	tagString byte = 's'
	tagInt    byte = 'i'

	minInt = -(1 << 31)
	maxInt = (1 << 31) - 1
)

// Encrypt splits value into one share per node. Store keys return base64
// strings, sum keys return int64 additive shares.
func (k *ClusterKey) Encrypt(value any) ([]any, error) {
	if k.ops.Sum {
		n, err := toInt(value)
		if err != nil {
			return nil, err
		}
		shares, err := splitSum(n, k.nodes)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(shares))
		for i, s := range shares {
			out[i] = s
		}
		return out, nil
	}

	plaintext, err := encodeValue(value)
	if err != nil {
		return nil, err
	}
	defer wipeBytes(plaintext)

	if k.nodes == 1 {
		sealed, err := k.seal(plaintext)
		if err != nil {
			return nil, err
		}
		return []any{base64.StdEncoding.EncodeToString(sealed)}, nil
	}

	parts, err := shamir.Split(plaintext, k.nodes, k.nodes)
	if err != nil {
		return nil, fmt.Errorf("failed to split secret value: %w", err)
	}
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = base64.StdEncoding.EncodeToString(p)
	}
	return out, nil
}

// Decrypt reassembles the value from exactly one share per node, in any order.
func (k *ClusterKey) Decrypt(shares []any) (any, error) {
	if len(shares) != k.nodes {
		return nil, fmt.Errorf("%w: expected %d shares, got %d", interfaces.ErrReconstruction, k.nodes, len(shares))
	}

	if k.ops.Sum {
		values := make([]int64, len(shares))
		for i, s := range shares {
			n, err := toInt64(s)
			if err != nil {
				return nil, fmt.Errorf("%w: share %d: %v", interfaces.ErrReconstruction, i, err)
			}
			values[i] = n
		}
		return combineSum(values), nil
	}

	raw := make([][]byte, len(shares))
	for i, s := range shares {
		str, ok := s.(string)
		if !ok {
			return nil, fmt.Errorf("%w: share %d is %T, expected string", interfaces.ErrReconstruction, i, s)
		}
		b, err := base64.StdEncoding.DecodeString(str)
		if err != nil {
			return nil, fmt.Errorf("%w: share %d: %v", interfaces.ErrReconstruction, i, err)
		}
		raw[i] = b
	}

	var plaintext []byte
	var err error
	if k.nodes == 1 {
		plaintext, err = k.open(raw[0])
	} else {
		plaintext, err = shamir.Combine(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrReconstruction, err)
	}
	defer wipeBytes(plaintext)

	return decodeValue(plaintext)
}

func (k *ClusterKey) seal(plaintext []byte) ([]byte, error) {
	var key [secretSize]byte
	var nonce [nonceSize]byte
	copy(key[:], k.secret)
	defer wipeBytes(key[:])

	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &key), nil
}

func (k *ClusterKey) open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(sealed))
	}
	var key [secretSize]byte
	var nonce [nonceSize]byte
	copy(key[:], k.secret)
	copy(nonce[:], sealed[:nonceSize])
	defer wipeBytes(key[:])

	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &key)
	if !ok {
		return nil, fmt.Errorf("ciphertext authentication failed")
	}
	return plaintext, nil
}

func encodeValue(value any) ([]byte, error) {
	if s, ok := value.(string); ok {
		out := make([]byte, 1+len(s))
		out[0] = tagString
		copy(out[1:], s)
		return out, nil
	}

	n, err := toInt(value)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 9)
	out[0] = tagInt
	binary.BigEndian.PutUint64(out[1:], uint64(n))
	return out, nil
}

func decodeValue(plaintext []byte) (any, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", interfaces.ErrReconstruction)
	}
	switch plaintext[0] {
	case tagString:
		return string(plaintext[1:]), nil
	case tagInt:
		if len(plaintext) != 9 {
			return nil, fmt.Errorf("%w: malformed integer plaintext", interfaces.ErrReconstruction)
		}
		return int64(binary.BigEndian.Uint64(plaintext[1:])), nil
	default:
		return nil, fmt.Errorf("%w: unknown plaintext tag %q", interfaces.ErrReconstruction, plaintext[0])
	}
}

// toInt accepts Go integers, integral float64 values (as produced by
// encoding/json) and json.Number within the 32-bit signed range.
func toInt(value any) (int64, error) {
	n, err := toInt64(value)
	if err != nil {
		return 0, err
	}
	if n < minInt || n > maxInt {
		return 0, fmt.Errorf("%w: integer %d outside [%d, %d]", interfaces.ErrUnsupportedValue, n, minInt, maxInt)
	}
	return n, nil
}

func toInt64(value any) (int64, error) {
	var n int64
	switch v := value.(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
			return 0, fmt.Errorf("%w: non-integral number %v", interfaces.ErrUnsupportedValue, v)
		}
		n = int64(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", interfaces.ErrUnsupportedValue, err)
		}
		n = i
	default:
		return 0, fmt.Errorf("%w: %T", interfaces.ErrUnsupportedValue, value)
	}
	return n, nil
}
