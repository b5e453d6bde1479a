package storage

import (
	"context"

	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockShardStore implements interfaces.ShardStore for testing
type MockShardStore struct {
	mock.Mock
	StoreName string
}

func (m *MockShardStore) PutSchema(ctx context.Context, entry interfaces.SchemaEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockShardStore) GetSchema(ctx context.Context, schemaID string) (interfaces.SchemaEntry, error) {
	args := m.Called(ctx, schemaID)
	return args.Get(0).(interfaces.SchemaEntry), args.Error(1)
}

func (m *MockShardStore) ListSchemas(ctx context.Context) ([]interfaces.SchemaEntry, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]interfaces.SchemaEntry)
	return entries, args.Error(1)
}

func (m *MockShardStore) InsertRecords(ctx context.Context, schemaID string, records []interfaces.Record) error {
	args := m.Called(ctx, schemaID, records)
	return args.Error(0)
}

func (m *MockShardStore) FindRecords(ctx context.Context, schemaID string, filter map[string]any) ([]interfaces.Record, error) {
	args := m.Called(ctx, schemaID, filter)
	records, _ := args.Get(0).([]interfaces.Record)
	return records, args.Error(1)
}

func (m *MockShardStore) DeleteRecords(ctx context.Context, schemaID string, filter map[string]any) (int, error) {
	args := m.Called(ctx, schemaID, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockShardStore) Name() string {
	return m.StoreName
}

func (m *MockShardStore) Close() error {
	return nil
}
