package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMultiShardStore_FindRecords(t *testing.T) {
	testRecords := []interfaces.Record{{"_id": "a"}}
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.ShardStore
		expected      []interfaces.Record
		expectedError bool
	}{
		{
			name: "first store successful",
			setupMocks: func() []interfaces.ShardStore {
				mock1 := &MockShardStore{StoreName: "mock-A"}
				mock1.On("FindRecords", mock.Anything, "s", mock.Anything).Return(testRecords, nil)

				// not called, the first store answers
				mock2 := &MockShardStore{StoreName: "mock-B"}

				return []interfaces.ShardStore{mock1, mock2}
			},
			expected: testRecords,
		},
		{
			name: "first store fails, second succeeds",
			setupMocks: func() []interfaces.ShardStore {
				mock1 := &MockShardStore{StoreName: "mock-A"}
				mock1.On("FindRecords", mock.Anything, "s", mock.Anything).Return(nil, testErr)

				mock2 := &MockShardStore{StoreName: "mock-B"}
				mock2.On("FindRecords", mock.Anything, "s", mock.Anything).Return(testRecords, nil)

				return []interfaces.ShardStore{mock1, mock2}
			},
			expected: testRecords,
		},
		{
			name: "all stores fail",
			setupMocks: func() []interfaces.ShardStore {
				mock1 := &MockShardStore{StoreName: "mock-A"}
				mock1.On("FindRecords", mock.Anything, "s", mock.Anything).Return(nil, testErr)

				mock2 := &MockShardStore{StoreName: "mock-B"}
				mock2.On("FindRecords", mock.Anything, "s", mock.Anything).Return(nil, testErr)

				return []interfaces.ShardStore{mock1, mock2}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := tt.setupMocks()
			multi := NewMultiShardStore(stores, discardLogger())

			records, err := multi.FindRecords(context.Background(), "s", nil)
			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, records)

			for _, store := range stores {
				store.(*MockShardStore).AssertExpectations(t)
			}
		})
	}
}

func TestMultiShardStore_InsertRecords(t *testing.T) {
	records := []interfaces.Record{{"_id": "a"}}

	t.Run("partial failure still succeeds", func(t *testing.T) {
		mock1 := &MockShardStore{StoreName: "mock-A"}
		mock1.On("InsertRecords", mock.Anything, "s", records).Return(errors.New("disk full"))
		mock2 := &MockShardStore{StoreName: "mock-B"}
		mock2.On("InsertRecords", mock.Anything, "s", records).Return(nil)

		multi := NewMultiShardStore([]interfaces.ShardStore{mock1, mock2}, discardLogger())
		assert.NoError(t, multi.InsertRecords(context.Background(), "s", records))
		mock1.AssertExpectations(t)
		mock2.AssertExpectations(t)
	})

	t.Run("duplicate from the primary is returned", func(t *testing.T) {
		mock1 := &MockShardStore{StoreName: "mock-A"}
		mock1.On("InsertRecords", mock.Anything, "s", records).Return(interfaces.ErrDuplicateRecord)
		mock2 := &MockShardStore{StoreName: "mock-B"}

		multi := NewMultiShardStore([]interfaces.ShardStore{mock1, mock2}, discardLogger())
		err := multi.InsertRecords(context.Background(), "s", records)
		assert.ErrorIs(t, err, interfaces.ErrDuplicateRecord)
		mock2.AssertNotCalled(t, "InsertRecords", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("all stores fail", func(t *testing.T) {
		mock1 := &MockShardStore{StoreName: "mock-A"}
		mock1.On("InsertRecords", mock.Anything, "s", records).Return(errors.New("disk full"))

		multi := NewMultiShardStore([]interfaces.ShardStore{mock1}, discardLogger())
		assert.Error(t, multi.InsertRecords(context.Background(), "s", records))
	})
}

func TestMultiShardStore_RealStores(t *testing.T) {
	a, b := NewMemoryStore(), NewMemoryStore()
	multi := NewMultiShardStore([]interfaces.ShardStore{a, b}, discardLogger())
	ctx := context.Background()

	require.NoError(t, multi.PutSchema(ctx, interfaces.SchemaEntry{ID: "s"}))
	require.NoError(t, multi.InsertRecords(ctx, "s", []interfaces.Record{{"_id": "x"}, {"_id": "y"}}))

	mirrored, err := b.FindRecords(ctx, "s", nil)
	require.NoError(t, err)
	assert.Len(t, mirrored, 2)

	removed, err := multi.DeleteRecords(ctx, "s", map[string]any{"_id": "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = multi.GetSchema(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}
