package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruteri/nildb-agentkit/interfaces"
)

// StoreFactory creates shard stores from URI strings.
type StoreFactory struct {
	log *slog.Logger
}

func NewStoreFactory(logger *slog.Logger) *StoreFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreFactory{log: logger}
}

// StoreFor creates a shard store from a location URI.
//
// Supported schemes:
//   - memory:// - in-process store, lost on exit
//   - sqlite:///path/to/node.db - SQLite database file
//   - sqlite://:memory: - private in-memory SQLite database
//
// A "{node}" placeholder in the path is replaced by node, so one URI can
// configure a directory of per-node databases.
func (sf *StoreFactory) StoreFor(locationURI string, node int) (interfaces.ShardStore, error) {
	scheme, rest, found := strings.Cut(locationURI, "://")
	if !found {
		return nil, fmt.Errorf("invalid store URI %q: missing scheme", locationURI)
	}

	switch strings.ToLower(scheme) {
	case "memory":
		sf.log.Debug("Creating memory store", slog.Int("node", node))
		return NewMemoryStore(), nil
	case "sqlite":
		path := rest
		if path == "" {
			return nil, fmt.Errorf("sqlite store URI %q has no path", locationURI)
		}
		path = strings.ReplaceAll(path, "{node}", fmt.Sprint(node))
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
		sf.log.Debug("Creating sqlite store", slog.Int("node", node), slog.String("path", path))
		return NewSQLiteStore(path, sf.log)
	default:
		return nil, fmt.Errorf("unsupported store scheme: %s", scheme)
	}
}

// CreateMultiStore creates a mirrored store from several location URIs. URIs
// that cannot be opened are skipped; at least one must succeed.
func (sf *StoreFactory) CreateMultiStore(locationURIs []string, node int) (interfaces.ShardStore, error) {
	if len(locationURIs) == 1 {
		return sf.StoreFor(locationURIs[0], node)
	}

	stores := make([]interfaces.ShardStore, 0, len(locationURIs))
	for _, uri := range locationURIs {
		store, err := sf.StoreFor(uri, node)
		if err != nil {
			sf.log.Warn("Failed to create shard store",
				"err", err,
				slog.String("locationURI", uri))
			continue
		}
		stores = append(stores, store)
	}

	if len(stores) == 0 {
		return nil, fmt.Errorf("no valid shard stores created")
	}
	return NewMultiShardStore(stores, sf.log), nil
}
