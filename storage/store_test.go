package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// storeImplementations returns a fresh instance of every ShardStore.
func storeImplementations(t *testing.T) map[string]interfaces.ShardStore {
	t.Helper()
	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "node.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]interfaces.ShardStore{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestShardStore_Schemas(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			users := interfaces.SchemaEntry{ID: "s-1", Name: "users", Keys: []string{"_id"}, Schema: map[string]any{"type": "array"}}
			notes := interfaces.SchemaEntry{ID: "s-2", Name: "notes", Schema: map[string]any{"type": "array"}}

			require.NoError(t, store.PutSchema(ctx, users))
			require.NoError(t, store.PutSchema(ctx, notes))
			assert.ErrorIs(t, store.PutSchema(ctx, users), interfaces.ErrSchemaExists)

			got, err := store.GetSchema(ctx, "s-1")
			require.NoError(t, err)
			assert.Equal(t, "users", got.Name)
			assert.Equal(t, []string{"_id"}, got.Keys)

			_, err = store.GetSchema(ctx, "missing")
			assert.ErrorIs(t, err, interfaces.ErrNotFound)

			list, err := store.ListSchemas(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "s-1", list[0].ID)
			assert.Equal(t, "s-2", list[1].ID)
		})
	}
}

func TestShardStore_Records(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			records := []interfaces.Record{
				{"_id": "a", "username": "alice", "password": map[string]any{"$share": "c2hhcmU="}},
				{"_id": "b", "username": "bob"},
				{"_id": "c", "username": "carol", "age": float64(40)},
			}
			require.NoError(t, store.InsertRecords(ctx, "s-1", records))

			all, err := store.FindRecords(ctx, "s-1", map[string]any{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "a", all[0]["_id"])
			assert.Equal(t, "c2hhcmU=", all[0]["password"].(map[string]any)["$share"])

			bob, err := store.FindRecords(ctx, "s-1", map[string]any{"username": "bob"})
			require.NoError(t, err)
			require.Len(t, bob, 1)

			aged, err := store.FindRecords(ctx, "s-1", map[string]any{"age": 40})
			require.NoError(t, err)
			assert.Len(t, aged, 1)

			other, err := store.FindRecords(ctx, "s-2", nil)
			require.NoError(t, err)
			assert.Empty(t, other)

			// a batch with one duplicate is rejected as a whole
			err = store.InsertRecords(ctx, "s-1", []interfaces.Record{{"_id": "d"}, {"_id": "a"}})
			assert.ErrorIs(t, err, interfaces.ErrDuplicateRecord)
			all, err = store.FindRecords(ctx, "s-1", nil)
			require.NoError(t, err)
			assert.Len(t, all, 3)

			removed, err := store.DeleteRecords(ctx, "s-1", map[string]any{"_id": map[string]any{"$in": []any{"a", "c", "zzz"}}})
			require.NoError(t, err)
			assert.Equal(t, 2, removed)

			all, err = store.FindRecords(ctx, "s-1", nil)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, "b", all[0]["_id"])
		})
	}
}

func TestShardStore_RecordsAreCopied(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	record := interfaces.Record{"_id": "a", "nested": map[string]any{"k": "v"}}
	require.NoError(t, store.InsertRecords(ctx, "s", []interfaces.Record{record}))

	record["nested"].(map[string]any)["k"] = "changed"
	got, err := store.FindRecords(ctx, "s", nil)
	require.NoError(t, err)
	assert.Equal(t, "v", got[0]["nested"].(map[string]any)["k"])
}

func TestMatchFilter(t *testing.T) {
	record := interfaces.Record{"_id": "a", "n": float64(3), "tag": "x"}

	tests := []struct {
		name    string
		filter  map[string]any
		want    bool
		wantErr bool
	}{
		{name: "empty", filter: map[string]any{}, want: true},
		{name: "equality", filter: map[string]any{"tag": "x"}, want: true},
		{name: "numeric equality across types", filter: map[string]any{"n": 3}, want: true},
		{name: "mismatch", filter: map[string]any{"tag": "y"}, want: false},
		{name: "missing field", filter: map[string]any{"other": "x"}, want: false},
		{name: "$in", filter: map[string]any{"_id": map[string]any{"$in": []any{"q", "a"}}}, want: true},
		{name: "$ne", filter: map[string]any{"tag": map[string]any{"$ne": "x"}}, want: false},
		{name: "$eq", filter: map[string]any{"n": map[string]any{"$eq": float64(3)}}, want: true},
		{name: "bad $in", filter: map[string]any{"_id": map[string]any{"$in": "a"}}, wantErr: true},
		{name: "unknown operator", filter: map[string]any{"n": map[string]any{"$gt": 1}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MatchFilter(record, tt.filter)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStoreFactory(t *testing.T) {
	sf := NewStoreFactory(discardLogger())

	store, err := sf.StoreFor("memory://", 0)
	require.NoError(t, err)
	assert.Equal(t, "memory", store.Name())

	dir := t.TempDir()
	store, err = sf.StoreFor("sqlite://"+filepath.Join(dir, "nodes", "node-{node}.db"), 2)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, "sqlite:"+filepath.Join(dir, "nodes", "node-2.db"), store.Name())

	mem, err := sf.StoreFor("sqlite://:memory:", 0)
	require.NoError(t, err)
	defer mem.Close()

	_, err = sf.StoreFor("s3://bucket", 0)
	assert.Error(t, err)
	_, err = sf.StoreFor("no-scheme", 0)
	assert.Error(t, err)

	multi, err := sf.CreateMultiStore([]string{"memory://", "bogus://", "memory://"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "multi:[memory,memory]", multi.Name())

	_, err = sf.CreateMultiStore([]string{"bogus://"}, 0)
	assert.Error(t, err)
}
