package sharing

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoreKey(t *testing.T, nodes int) *ClusterKey {
	t.Helper()
	key, err := GenerateClusterKey(nodes, Operations{Store: true})
	require.NoError(t, err)
	return key
}

// jsonRoundTrip mimics a node storing and returning a shard.
func jsonRoundTrip(t *testing.T, record interfaces.Record) interfaces.Record {
	t.Helper()
	raw, err := json.Marshal(record)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestAssignRecordID_Regenerate(t *testing.T) {
	supplied := uuid.NewString()
	record := interfaces.Record{
		"_id":    supplied,
		"nested": map[string]any{"_id": "inner"},
		"secret": map[string]any{"$share": map[string]any{"_id": "untouched"}},
	}

	id, err := AssignRecordID(record, IDPolicyRegenerate)
	require.NoError(t, err)

	// The caller-supplied id is intentionally overwritten under this policy.
	assert.NotEqual(t, supplied, id)
	assert.Equal(t, id, record["_id"])
	_, err = uuid.Parse(id)
	assert.NoError(t, err)

	inner := record["nested"].(map[string]any)["_id"].(string)
	assert.NotEqual(t, "inner", inner)
	_, err = uuid.Parse(inner)
	assert.NoError(t, err)

	secret := record["secret"].(map[string]any)["$share"].(map[string]any)
	assert.Equal(t, "untouched", secret["_id"])
}

func TestAssignRecordID_RegenerateAddsMissingID(t *testing.T) {
	record := interfaces.Record{"username": "alice"}
	id, err := AssignRecordID(record, IDPolicyRegenerate)
	require.NoError(t, err)
	assert.Equal(t, id, record["_id"])
}

func TestAssignRecordID_Preserve(t *testing.T) {
	supplied := uuid.NewString()
	record := interfaces.Record{"_id": supplied}
	id, err := AssignRecordID(record, IDPolicyPreserve)
	require.NoError(t, err)
	assert.Equal(t, supplied, id)

	record = interfaces.Record{"username": "alice"}
	id, err = AssignRecordID(record, IDPolicyPreserve)
	require.NoError(t, err)
	assert.Equal(t, id, record["_id"])

	_, err = AssignRecordID(interfaces.Record{"_id": 12}, IDPolicyPreserve)
	assert.ErrorIs(t, err, interfaces.ErrValidation)
}

func TestParseIDPolicy(t *testing.T) {
	p, err := ParseIDPolicy("")
	require.NoError(t, err)
	assert.Equal(t, IDPolicyRegenerate, p)

	p, err = ParseIDPolicy("Preserve")
	require.NoError(t, err)
	assert.Equal(t, IDPolicyPreserve, p)

	_, err = ParseIDPolicy("keep")
	assert.ErrorIs(t, err, interfaces.ErrConfiguration)
}

func TestLiftSecretFields(t *testing.T) {
	key := newStoreKey(t, 3)
	record := interfaces.Record{
		"username": "alice",
		"password": map[string]any{"$share": "secret123"},
		"profile": map[string]any{
			"ssn": map[string]any{"$share": "123-45-6789"},
		},
		"tags": []any{map[string]any{"$share": "not lifted"}},
	}

	require.NoError(t, LiftSecretFields(key, record))

	password := record["password"].(map[string]any)
	assert.NotContains(t, password, "$share")
	assert.Len(t, password["$allot"], 3)

	ssn := record["profile"].(map[string]any)["ssn"].(map[string]any)
	assert.Len(t, ssn["$allot"], 3)

	// lists are not walked
	tag := record["tags"].([]any)[0].(map[string]any)
	assert.Equal(t, "not lifted", tag["$share"])
}

func TestLiftSecretFields_UnsupportedValue(t *testing.T) {
	key := newStoreKey(t, 3)
	record := interfaces.Record{"flag": map[string]any{"$share": true}}
	err := LiftSecretFields(key, record)
	assert.ErrorIs(t, err, interfaces.ErrUnsupportedValue)
	assert.Contains(t, err.Error(), "flag")
}

func TestAllot_ShardCompleteness(t *testing.T) {
	key := newStoreKey(t, 3)
	records := []interfaces.Record{
		{"username": "alice", "password": map[string]any{"$share": "a"}},
		{"username": "bob", "password": map[string]any{"$share": "b"}},
	}
	for _, r := range records {
		_, err := MarkAndSplit(key, r, IDPolicyRegenerate)
		require.NoError(t, err)
	}

	shards, err := Allot(records, 3)
	require.NoError(t, err)
	require.Len(t, shards, 3)

	perRecord := map[string]int{}
	for _, nodeShards := range shards {
		require.Len(t, nodeShards, len(records))
		for j, shard := range nodeShards {
			assert.Equal(t, records[j]["_id"], shard["_id"])
			perRecord[shard["_id"].(string)]++
			password := shard["password"].(map[string]any)
			assert.Len(t, password, 1)
			assert.IsType(t, "", password["$share"])
		}
	}
	for _, count := range perRecord {
		assert.Equal(t, 3, count)
	}
}

func TestAllot_ShareCountMismatch(t *testing.T) {
	records := []interfaces.Record{
		{"_id": "x", "password": map[string]any{"$allot": []any{"a", "b"}}},
	}
	_, err := Allot(records, 3)
	assert.ErrorIs(t, err, interfaces.ErrAllotment)
}

func TestSecretFieldOpacity(t *testing.T) {
	key := newStoreKey(t, 3)
	record := interfaces.Record{"username": "alice", "password": map[string]any{"$share": "secret123"}}
	_, err := MarkAndSplit(key, record, IDPolicyRegenerate)
	require.NoError(t, err)

	shards, err := Allot([]interfaces.Record{record}, 3)
	require.NoError(t, err)

	for i, nodeShards := range shards {
		raw, err := json.Marshal(nodeShards)
		require.NoError(t, err)
		assert.False(t, strings.Contains(string(raw), "secret123"), "node %d shard leaks plaintext", i)
		assert.True(t, strings.Contains(string(raw), "alice"))
	}
}

func TestUnify_RoundTrip(t *testing.T) {
	key := newStoreKey(t, 3)
	original := interfaces.Record{
		"username": "alice",
		"password": map[string]any{"$share": "secret123"},
		"age":      float64(31),
		"address": map[string]any{
			"city":   "Lisbon",
			"street": map[string]any{"$share": "Rua Augusta 1"},
		},
		"labels": []any{"a", "b"},
	}
	record := CloneRecord(original)

	id, err := MarkAndSplit(key, record, IDPolicyRegenerate)
	require.NoError(t, err)

	shards, err := Allot([]interfaces.Record{record}, 3)
	require.NoError(t, err)

	forID := make([]interfaces.Record, 3)
	for i := range shards {
		forID[i] = jsonRoundTrip(t, shards[i][0])
		forID[i]["_created"] = "2024-01-0" + string(rune('1'+i))
	}

	unified, err := Unify(key, forID, nil)
	require.NoError(t, err)

	// _id is regenerated by MarkAndSplit; every other field round-trips with
	// the $share marker replaced by its plaintext.
	assert.Equal(t, id, unified["_id"])
	assert.Equal(t, "alice", unified["username"])
	assert.Equal(t, "secret123", unified["password"])
	assert.Equal(t, float64(31), unified["age"])
	assert.Equal(t, map[string]any{"city": "Lisbon", "street": "Rua Augusta 1"}, unified["address"])
	assert.Equal(t, []any{"a", "b"}, unified["labels"])
	assert.Equal(t, "2024-01-01", unified["_created"])
}

func TestUnify_MarkerWithSiblings(t *testing.T) {
	key := newStoreKey(t, 2)
	record := interfaces.Record{"pin": map[string]any{"$share": "0000", "hint": "birthday"}}
	_, err := MarkAndSplit(key, record, IDPolicyRegenerate)
	require.NoError(t, err)

	shards, err := Allot([]interfaces.Record{record}, 2)
	require.NoError(t, err)

	unified, err := Unify(key, []interfaces.Record{shards[0][0], shards[1][0]}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"$share": "0000", "hint": "birthday"}, unified["pin"])
}

func TestUnify_Errors(t *testing.T) {
	key := newStoreKey(t, 3)
	record := interfaces.Record{"password": map[string]any{"$share": "secret123"}}
	_, err := MarkAndSplit(key, record, IDPolicyRegenerate)
	require.NoError(t, err)
	shards, err := Allot([]interfaces.Record{record}, 3)
	require.NoError(t, err)

	t.Run("share count mismatch", func(t *testing.T) {
		_, err := Unify(key, []interfaces.Record{shards[0][0], shards[1][0]}, nil)
		assert.ErrorIs(t, err, interfaces.ErrReconstruction)
	})

	t.Run("malformed share", func(t *testing.T) {
		bad := CloneRecord(shards[2][0])
		bad["password"] = map[string]any{"$share": 12}
		_, err := Unify(key, []interfaces.Record{shards[0][0], shards[1][0], bad}, nil)
		assert.ErrorIs(t, err, interfaces.ErrReconstruction)
	})

	t.Run("plaintext disagreement", func(t *testing.T) {
		a := CloneRecord(shards[0][0])
		b := CloneRecord(shards[1][0])
		c := CloneRecord(shards[2][0])
		a["username"], b["username"], c["username"] = "alice", "alice", "mallory"
		_, err := Unify(key, []interfaces.Record{a, b, c}, nil)
		assert.ErrorIs(t, err, interfaces.ErrReconstruction)
	})

	t.Run("missing share key", func(t *testing.T) {
		bad := CloneRecord(shards[2][0])
		bad["password"] = map[string]any{"other": "x"}
		_, err := Unify(key, []interfaces.Record{shards[0][0], shards[1][0], bad}, nil)
		assert.ErrorIs(t, err, interfaces.ErrReconstruction)
	})
}

func TestCloneRecord_IsDeep(t *testing.T) {
	record := interfaces.Record{"a": map[string]any{"b": []any{"c"}}}
	clone := CloneRecord(record)
	clone["a"].(map[string]any)["b"].([]any)[0] = "changed"
	assert.Equal(t, "c", record["a"].(map[string]any)["b"].([]any)[0])
}
