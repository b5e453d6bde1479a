package sharing

import (
	"encoding/json"
	"testing"

	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateClusterKey(t *testing.T) {
	tests := []struct {
		name    string
		nodes   int
		ops     Operations
		wantErr bool
	}{
		{name: "store three nodes", nodes: 3, ops: Operations{Store: true}},
		{name: "store single node", nodes: 1, ops: Operations{Store: true}},
		{name: "sum two nodes", nodes: 2, ops: Operations{Sum: true}},
		{name: "zero nodes", nodes: 0, ops: Operations{Store: true}, wantErr: true},
		{name: "no operation", nodes: 3, ops: Operations{}, wantErr: true},
		{name: "both operations", nodes: 3, ops: Operations{Store: true, Sum: true}, wantErr: true},
		{name: "sum single node", nodes: 1, ops: Operations{Sum: true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := GenerateClusterKey(tt.nodes, tt.ops)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.nodes, key.Nodes())
			assert.Equal(t, tt.ops, key.Operations())
		})
	}
}

func TestClusterKey_StoreRoundTrip(t *testing.T) {
	for _, nodes := range []int{1, 2, 3, 5} {
		key, err := GenerateClusterKey(nodes, Operations{Store: true})
		require.NoError(t, err)

		for _, value := range []any{"secret123", "", "ünïcødé", 42, int64(-7), float64(1 << 30)} {
			shares, err := key.Encrypt(value)
			require.NoError(t, err)
			require.Len(t, shares, nodes)

			plain, err := key.Decrypt(shares)
			require.NoError(t, err)

			switch v := value.(type) {
			case string:
				assert.Equal(t, v, plain)
			default:
				n, err := toInt(v)
				require.NoError(t, err)
				assert.Equal(t, n, plain)
			}
		}
	}
}

func TestClusterKey_SharesSurviveJSON(t *testing.T) {
	key, err := GenerateClusterKey(3, Operations{Store: true})
	require.NoError(t, err)

	shares, err := key.Encrypt("secret123")
	require.NoError(t, err)

	raw, err := json.Marshal(shares)
	require.NoError(t, err)
	var decoded []any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	plain, err := key.Decrypt(decoded)
	require.NoError(t, err)
	assert.Equal(t, "secret123", plain)
}

func TestClusterKey_SumRoundTrip(t *testing.T) {
	key, err := GenerateClusterKey(3, Operations{Sum: true})
	require.NoError(t, err)

	for _, value := range []int64{0, 1, -1, 123456, maxInt, minInt} {
		shares, err := key.Encrypt(value)
		require.NoError(t, err)

		// shares go through JSON as float64
		raw, err := json.Marshal(shares)
		require.NoError(t, err)
		var decoded []any
		require.NoError(t, json.Unmarshal(raw, &decoded))

		plain, err := key.Decrypt(decoded)
		require.NoError(t, err)
		assert.Equal(t, value, plain)
	}

	_, err = key.Encrypt("text")
	assert.ErrorIs(t, err, interfaces.ErrUnsupportedValue)
}

func TestClusterKey_SumSharesAreAdditive(t *testing.T) {
	key, err := GenerateClusterKey(2, Operations{Sum: true})
	require.NoError(t, err)

	a, err := key.Encrypt(40)
	require.NoError(t, err)
	b, err := key.Encrypt(2)
	require.NoError(t, err)

	summed := []any{a[0].(int64) + b[0].(int64), a[1].(int64) + b[1].(int64)}
	plain, err := key.Decrypt(summed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), plain)
}

func TestClusterKey_DecryptErrors(t *testing.T) {
	key, err := GenerateClusterKey(3, Operations{Store: true})
	require.NoError(t, err)

	shares, err := key.Encrypt("secret123")
	require.NoError(t, err)

	_, err = key.Decrypt(shares[:2])
	assert.ErrorIs(t, err, interfaces.ErrReconstruction)

	_, err = key.Decrypt([]any{shares[0], shares[1], 7})
	assert.ErrorIs(t, err, interfaces.ErrReconstruction)

	_, err = key.Decrypt([]any{shares[0], shares[1], "!!not-base64!!"})
	assert.ErrorIs(t, err, interfaces.ErrReconstruction)

	single, err := GenerateClusterKey(1, Operations{Store: true})
	require.NoError(t, err)
	_, err = single.Decrypt([]any{"c2hvcnQ="})
	assert.ErrorIs(t, err, interfaces.ErrReconstruction)
}

func TestClusterKey_UnsupportedValues(t *testing.T) {
	key, err := GenerateClusterKey(3, Operations{Store: true})
	require.NoError(t, err)

	for _, value := range []any{1.5, true, nil, map[string]any{"a": 1}, []any{"x"}, int64(1) << 40} {
		_, err := key.Encrypt(value)
		assert.ErrorIs(t, err, interfaces.ErrUnsupportedValue, "value %v", value)
	}
}
