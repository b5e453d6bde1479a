package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/nildb-agentkit/interfaces"
)

// MultiShardStore mirrors a node's data across several stores. Writes go to
// every store and succeed if at least one store accepted them; reads are
// served by the first store that answers.
type MultiShardStore struct {
	stores []interfaces.ShardStore
	log    *slog.Logger
}

// NewMultiShardStore creates a mirrored store over stores.
func NewMultiShardStore(stores []interfaces.ShardStore, logger *slog.Logger) *MultiShardStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiShardStore{
		stores: stores,
		log:    logger,
	}
}

// writeAll applies op to every store. It fails only if every store failed. A
// conflict (duplicate id) from the first store is returned as is so callers
// can map it to a client error.
func (m *MultiShardStore) writeAll(ctx context.Context, what string, op func(interfaces.ShardStore) error) error {
	start := time.Now()
	var errs []error
	success := false

	for i, store := range m.stores {
		if err := op(store); err != nil {
			if i == 0 && (errors.Is(err, interfaces.ErrDuplicateRecord) || errors.Is(err, interfaces.ErrSchemaExists)) {
				return err
			}
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
			m.log.Debug("Failed to write to store",
				slog.String("store", store.Name()),
				slog.String("op", what),
				slog.Any("err", err))
			continue
		}
		success = true
	}

	if !success {
		m.log.Error("All stores failed to write",
			slog.String("op", what),
			slog.Int("failed_stores", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("all stores failed to %s: %w", what, errors.Join(errs...))
	}
	if len(errs) > 0 {
		m.log.Warn("Some stores failed to write",
			slog.String("op", what),
			slog.Int("failed_stores", len(errs)))
	}
	return nil
}

func (m *MultiShardStore) PutSchema(ctx context.Context, entry interfaces.SchemaEntry) error {
	return m.writeAll(ctx, "put schema", func(s interfaces.ShardStore) error {
		return s.PutSchema(ctx, entry)
	})
}

func (m *MultiShardStore) InsertRecords(ctx context.Context, schemaID string, records []interfaces.Record) error {
	return m.writeAll(ctx, "insert records", func(s interfaces.ShardStore) error {
		return s.InsertRecords(ctx, schemaID, records)
	})
}

func (m *MultiShardStore) DeleteRecords(ctx context.Context, schemaID string, filter map[string]any) (int, error) {
	removed := -1
	err := m.writeAll(ctx, "delete records", func(s interfaces.ShardStore) error {
		n, err := s.DeleteRecords(ctx, schemaID, filter)
		if err == nil && removed < 0 {
			removed = n
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// readFirst returns the result of the first store that answers without error.
// ErrNotFound from a store is authoritative.
func readFirst[T any](m *MultiShardStore, what string, op func(interfaces.ShardStore) (T, error)) (T, error) {
	var zero T
	var errs []error
	for _, store := range m.stores {
		out, err := op(store)
		if err == nil || errors.Is(err, interfaces.ErrNotFound) {
			return out, err
		}
		errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
		m.log.Debug("Failed to read from store",
			slog.String("store", store.Name()),
			slog.String("op", what),
			slog.Any("err", err))
	}
	if len(errs) == 0 {
		return zero, errors.New("no stores configured")
	}
	return zero, fmt.Errorf("all stores failed to %s: %w", what, errors.Join(errs...))
}

func (m *MultiShardStore) GetSchema(ctx context.Context, schemaID string) (interfaces.SchemaEntry, error) {
	return readFirst(m, "get schema", func(s interfaces.ShardStore) (interfaces.SchemaEntry, error) {
		return s.GetSchema(ctx, schemaID)
	})
}

func (m *MultiShardStore) ListSchemas(ctx context.Context) ([]interfaces.SchemaEntry, error) {
	return readFirst(m, "list schemas", func(s interfaces.ShardStore) ([]interfaces.SchemaEntry, error) {
		return s.ListSchemas(ctx)
	})
}

func (m *MultiShardStore) FindRecords(ctx context.Context, schemaID string, filter map[string]any) ([]interfaces.Record, error) {
	return readFirst(m, "find records", func(s interfaces.ShardStore) ([]interfaces.Record, error) {
		return s.FindRecords(ctx, schemaID, filter)
	})
}

// Name lists the mirrored stores.
func (m *MultiShardStore) Name() string {
	names := make([]string, len(m.stores))
	for i, s := range m.stores {
		names[i] = s.Name()
	}
	return "multi:[" + strings.Join(names, ",") + "]"
}

func (m *MultiShardStore) Close() error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
