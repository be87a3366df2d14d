package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the durable default Store: a single-file database holding
// raw payloads keyed by content address.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the transcript database at path,
// creating parent directories as needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("cache: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initTranscriptSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: init schema: %w", err)
	}
	slog.Info("cache: sqlite store ready", slog.String("path", path))
	return &SQLiteStore{db: db}, nil
}

func initTranscriptSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS transcripts (
		key        TEXT PRIMARY KEY,
		payload    BLOB NOT NULL,
		format     TEXT NOT NULL,
		strategy   TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (RawTranscript, bool, error) {
	var raw RawTranscript
	row := s.db.QueryRowContext(ctx,
		`SELECT payload, format, strategy FROM transcripts WHERE key = ?`, key)
	err := row.Scan(&raw.Payload, &raw.Format, &raw.Strategy)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return RawTranscript{}, false, nil
	case err != nil:
		// Fail-open: the chain treats this as a miss.
		return RawTranscript{}, false, &CacheIOError{Op: "get", Key: key, Err: err}
	}
	if len(raw.Payload) == 0 {
		return RawTranscript{}, false, nil
	}
	return raw, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, raw RawTranscript) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (key, payload, format, strategy) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload,
		                                format = excluded.format,
		                                strategy = excluded.strategy`,
		key, raw.Payload, raw.Format, raw.Strategy)
	if err != nil {
		return &CacheIOError{Op: "put", Key: key, Err: err}
	}
	return nil
}

func (s *SQLiteStore) Invalidate(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE key = ?`, key); err != nil {
		return &CacheIOError{Op: "invalidate", Key: key, Err: err}
	}
	return nil
}

func (s *SQLiteStore) InvalidatePrefix(ctx context.Context, prefix string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM transcripts WHERE key LIKE ? ESCAPE '\'`, likePrefixPattern(prefix))
	if err != nil {
		return &CacheIOError{Op: "invalidate", Key: prefix + "*", Err: err}
	}
	return nil
}

// likePrefixPattern escapes LIKE metacharacters in prefix and appends the
// match-all suffix. Video IDs may contain '_', which LIKE would otherwise
// treat as a single-character wildcard.
func likePrefixPattern(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func (s *SQLiteStore) InvalidateAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transcripts`); err != nil {
		return &CacheIOError{Op: "invalidate", Key: "*", Err: err}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
