package sharing

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// sumModulus is the prime 2^32 + 15 over which additive shares are computed.
const sumModulus int64 = (1 << 32) + 15

func splitSum(value int64, nodes int) ([]int64, error) {
	mod := big.NewInt(sumModulus)
	shares := make([]int64, nodes)

	var total int64
	for i := 0; i < nodes-1; i++ {
		r, err := rand.Int(rand.Reader, mod)
		if err != nil {
			return nil, fmt.Errorf("failed to generate share: %w", err)
		}
		shares[i] = r.Int64()
		total = (total + shares[i]) % sumModulus
	}

	encoded := ((value % sumModulus) + sumModulus) % sumModulus
	shares[nodes-1] = ((encoded-total)%sumModulus + sumModulus) % sumModulus
	return shares, nil
}

func combineSum(shares []int64) int64 {
	var total int64
	for _, s := range shares {
		total = (total + ((s%sumModulus)+sumModulus)%sumModulus) % sumModulus
	}
	if total > maxInt {
		return total - sumModulus
	}
	return total
}
