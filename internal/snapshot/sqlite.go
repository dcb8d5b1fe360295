//go:build sqlite

package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

type SQLiteSink struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteSink(path string) *SQLiteSink {
	return &SQLiteSink{path: path}
}

func (s *SQLiteSink) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteSink) SaveParams(ctx context.Context, name string, snap ParamsSnapshot) error {
	payload, err := EncodeParams(snap)
	if err != nil {
		return err
	}
	return s.save(ctx, "params_snapshots", name, snap.VersionedRecord, payload)
}

func (s *SQLiteSink) GetParams(ctx context.Context, name string) (ParamsSnapshot, bool, error) {
	payload, ok, err := s.load(ctx, "params_snapshots", name)
	if err != nil || !ok {
		return ParamsSnapshot{}, ok, err
	}
	snap, err := DecodeParams(payload)
	if err != nil {
		return ParamsSnapshot{}, false, fmt.Errorf("decode params snapshot %s: %w", name, err)
	}
	return snap, true, nil
}

func (s *SQLiteSink) SaveHistory(ctx context.Context, name string, snap HistorySnapshot) error {
	payload, err := EncodeHistory(snap)
	if err != nil {
		return err
	}
	return s.save(ctx, "history_snapshots", name, snap.VersionedRecord, payload)
}

func (s *SQLiteSink) GetHistory(ctx context.Context, name string) (HistorySnapshot, bool, error) {
	payload, ok, err := s.load(ctx, "history_snapshots", name)
	if err != nil || !ok {
		return HistorySnapshot{}, ok, err
	}
	snap, err := DecodeHistory(payload)
	if err != nil {
		return HistorySnapshot{}, false, fmt.Errorf("decode history snapshot %s: %w", name, err)
	}
	return snap, true, nil
}

func (s *SQLiteSink) SaveObject(ctx context.Context, name string, snap ObjectSnapshot) error {
	payload, err := EncodeObject(snap)
	if err != nil {
		return err
	}
	return s.save(ctx, "object_snapshots", name, snap.VersionedRecord, payload)
}

func (s *SQLiteSink) GetObject(ctx context.Context, name string) (ObjectSnapshot, bool, error) {
	payload, ok, err := s.load(ctx, "object_snapshots", name)
	if err != nil || !ok {
		return ObjectSnapshot{}, ok, err
	}
	snap, err := DecodeObject(payload)
	if err != nil {
		return ObjectSnapshot{}, false, fmt.Errorf("decode object snapshot %s: %w", name, err)
	}
	return snap, true, nil
}

func (s *SQLiteSink) ListParams(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT name FROM params_snapshots ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteSink) save(ctx context.Context, table, name string, version VersionedRecord, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (name, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, table), name, version.SchemaVersion, version.CodecVersion, payload)
	return err
}

func (s *SQLiteSink) load(ctx context.Context, table, name string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, fmt.Sprintf(`SELECT payload FROM %s WHERE name = ?`, table), name).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

func (s *SQLiteSink) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("sqlite sink is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{"params_snapshots", "history_snapshots", "object_snapshots"} {
		_, err := db.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				name TEXT PRIMARY KEY,
				schema_version INTEGER NOT NULL,
				codec_version INTEGER NOT NULL,
				payload BLOB NOT NULL
			)
		`, table))
		if err != nil {
			return err
		}
	}
	return nil
}

func newSQLiteSink(path string) (Sink, error) {
	return NewSQLiteSink(path), nil
}
