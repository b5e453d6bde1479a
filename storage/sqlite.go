package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruteri/nildb-agentkit/interfaces"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists a node's schemas and shards in a SQLite database.
// Documents are kept as JSON text; filters are evaluated after decoding.
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" gives a
// private in-memory database.
func NewSQLiteStore(path string, log *slog.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single connection keeps :memory: databases shared and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug("Opened sqlite shard store", slog.String("path", path))
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	queries := []string{`
	CREATE TABLE IF NOT EXISTS schemas (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		schema_id TEXT NOT NULL UNIQUE,
		document TEXT NOT NULL
	);`, `
	CREATE TABLE IF NOT EXISTS records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		schema_id TEXT NOT NULL,
		record_id TEXT NOT NULL,
		document TEXT NOT NULL,
		UNIQUE (schema_id, record_id)
	);`}
	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to migrate sqlite shard store: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) PutSchema(ctx context.Context, entry interfaces.SchemaEntry) error {
	doc, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM schemas WHERE schema_id = ?`, entry.ID).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", interfaces.ErrSchemaExists, entry.ID)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schemas (schema_id, document) VALUES (?, ?)`, entry.ID, string(doc)); err != nil {
		return fmt.Errorf("failed to insert schema: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetSchema(ctx context.Context, schemaID string) (interfaces.SchemaEntry, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM schemas WHERE schema_id = ?`, schemaID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return interfaces.SchemaEntry{}, fmt.Errorf("%w: schema %s", interfaces.ErrNotFound, schemaID)
	}
	if err != nil {
		return interfaces.SchemaEntry{}, err
	}
	var entry interfaces.SchemaEntry
	if err := json.Unmarshal([]byte(doc), &entry); err != nil {
		return interfaces.SchemaEntry{}, fmt.Errorf("failed to decode schema %s: %w", schemaID, err)
	}
	return entry, nil
}

func (s *SQLiteStore) ListSchemas(ctx context.Context) ([]interfaces.SchemaEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM schemas ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []interfaces.SchemaEntry
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var entry interfaces.SchemaEntry
		if err := json.Unmarshal([]byte(doc), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode schema: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertRecords(ctx context.Context, schemaID string, records []interfaces.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	batch := make(map[string]bool, len(records))
	for _, r := range records {
		id, ok := r[interfaces.IDKey].(string)
		if !ok || id == "" {
			return fmt.Errorf("record without a string _id")
		}
		if batch[id] {
			return fmt.Errorf("%w: %s", interfaces.ErrDuplicateRecord, id)
		}
		batch[id] = true

		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE schema_id = ? AND record_id = ?`, schemaID, id).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", interfaces.ErrDuplicateRecord, id)
		}

		doc, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO records (schema_id, record_id, document) VALUES (?, ?, ?)`, schemaID, id, string(doc)); err != nil {
			return fmt.Errorf("failed to insert record %s: %w", id, err)
		}
	}
	return tx.Commit()
}

type storedRecord struct {
	id     string
	record interfaces.Record
}

func (s *SQLiteStore) matching(ctx context.Context, q interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}, schemaID string, filter map[string]any) ([]storedRecord, error) {
	rows, err := q.QueryContext(ctx, `SELECT record_id, document FROM records WHERE schema_id = ? ORDER BY seq`, schemaID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []storedRecord
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(doc), &record); err != nil {
			return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
		}
		ok, err := MatchFilter(record, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, storedRecord{id: id, record: record})
		}
	}
	return out, rows.Err()
}

func (s *SQLiteStore) FindRecords(ctx context.Context, schemaID string, filter map[string]any) ([]interfaces.Record, error) {
	matched, err := s.matching(ctx, s.db, schemaID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]interfaces.Record, len(matched))
	for i, m := range matched {
		out[i] = m.record
	}
	return out, nil
}

func (s *SQLiteStore) DeleteRecords(ctx context.Context, schemaID string, filter map[string]any) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	matched, err := s.matching(ctx, tx, schemaID, filter)
	if err != nil {
		return 0, err
	}
	for _, m := range matched {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE schema_id = ? AND record_id = ?`, schemaID, m.id); err != nil {
			return 0, fmt.Errorf("failed to delete record %s: %w", m.id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (s *SQLiteStore) Name() string {
	return "sqlite:" + s.path
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
