package sharing

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// Operations selects the sharing scheme a ClusterKey supports. Exactly one
// operation must be enabled.
type Operations struct {
	// Store enables splitting and reassembly of strings and integers for storage.
	Store bool

	// Sum enables additive sharing of integers, so shares can be summed node-side.
	Sum bool
}

// ClusterKey is the key material that splits secret values across a fixed set
// of nodes and reassembles them. It is generated per registry initialization and
// is never persisted or serialized.
type ClusterKey struct {
	nodes  int
	ops    Operations
	secret []byte // only set for single-node store keys
}

// GenerateClusterKey creates a key for a cluster of the given size.
//
// With two or more nodes, store keys use n-of-n Shamir sharing and sum keys use
// additive sharing; neither needs secret material. A single-node store key
// falls back to authenticated encryption under a random 32-byte secret.
func GenerateClusterKey(nodes int, ops Operations) (*ClusterKey, error) {
	if nodes < 1 {
		return nil, fmt.Errorf("cluster must have at least one node, got %d", nodes)
	}
	if nodes > 255 {
		return nil, fmt.Errorf("cluster must have at most 255 nodes, got %d", nodes)
	}
	if ops.Store == ops.Sum {
		return nil, errors.New("exactly one of store or sum operations must be enabled")
	}
	if ops.Sum && nodes == 1 {
		return nil, errors.New("sum operation requires at least two nodes")
	}

	key := &ClusterKey{nodes: nodes, ops: ops}
	if nodes == 1 {
		key.secret = make([]byte, secretSize)
		if _, err := rand.Read(key.secret); err != nil {
			return nil, fmt.Errorf("failed to generate cluster key secret: %w", err)
		}
	}
	return key, nil
}

// Nodes returns the number of shares every value is split into.
func (k *ClusterKey) Nodes() int {
	return k.nodes
}

// Operations returns the sharing scheme of the key.
func (k *ClusterKey) Operations() Operations {
	return k.ops
}

// Wipe zeroes the secret material held by the key.
func (k *ClusterKey) Wipe() {
	wipeBytes(k.secret)
}

// Securely wipe data from memory
func wipeBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
