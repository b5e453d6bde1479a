package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/ruteri/nildb-agentkit/interfaces"
	"github.com/ruteri/nildb-agentkit/sharing"
)

// MemoryStore keeps a node's schemas and shards in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	schemas []interfaces.SchemaEntry
	records map[string][]interfaces.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]interfaces.Record)}
}

func (s *MemoryStore) PutSchema(_ context.Context, entry interfaces.SchemaEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.schemas {
		if existing.ID == entry.ID {
			return fmt.Errorf("%w: %s", interfaces.ErrSchemaExists, entry.ID)
		}
	}
	s.schemas = append(s.schemas, entry)
	return nil
}

func (s *MemoryStore) GetSchema(_ context.Context, schemaID string) (interfaces.SchemaEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.schemas {
		if entry.ID == schemaID {
			return entry, nil
		}
	}
	return interfaces.SchemaEntry{}, fmt.Errorf("%w: schema %s", interfaces.ErrNotFound, schemaID)
}

func (s *MemoryStore) ListSchemas(_ context.Context) ([]interfaces.SchemaEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]interfaces.SchemaEntry(nil), s.schemas...), nil
}

func (s *MemoryStore) InsertRecords(_ context.Context, schemaID string, records []interfaces.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(s.records[schemaID])+len(records))
	for _, r := range s.records[schemaID] {
		seen[r[interfaces.IDKey].(string)] = true
	}
	for _, r := range records {
		id, ok := r[interfaces.IDKey].(string)
		if !ok || id == "" {
			return fmt.Errorf("record without a string _id")
		}
		if seen[id] {
			return fmt.Errorf("%w: %s", interfaces.ErrDuplicateRecord, id)
		}
		seen[id] = true
	}

	for _, r := range records {
		s.records[schemaID] = append(s.records[schemaID], sharing.CloneRecord(r))
	}
	return nil
}

func (s *MemoryStore) FindRecords(_ context.Context, schemaID string, filter map[string]any) ([]interfaces.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []interfaces.Record
	for _, r := range s.records[schemaID] {
		ok, err := MatchFilter(r, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, sharing.CloneRecord(r))
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteRecords(_ context.Context, schemaID string, filter map[string]any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.records[schemaID]
	matched := make([]bool, len(current))
	for i, r := range current {
		ok, err := MatchFilter(r, filter)
		if err != nil {
			return 0, err
		}
		matched[i] = ok
	}

	kept := make([]interfaces.Record, 0, len(current))
	removed := 0
	for i, r := range current {
		if matched[i] {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.records[schemaID] = kept
	return removed, nil
}

func (s *MemoryStore) Name() string {
	return "memory"
}

func (s *MemoryStore) Close() error {
	return nil
}
