// Package sqlitestore keeps file lists in a SQLite database, as an extra
// output of a run and as a cache source for the next one.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	fhl "github.com/mattkeenan/filehashlist/pkg"

	_ "modernc.org/sqlite"
)

// batchSize is the number of records written per transaction
const batchSize = 1000

// Store persists file records inside a SQLite database.
type Store struct {
	db      *sql.DB
	tx      *sql.Tx
	upsert  *sql.Stmt
	pending int
}

// Open initializes (or reuses) a SQLite database at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one connection so the write transaction and reads see the same state
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// IsDatabasePath reports whether path names a SQLite file by its extension
func IsDatabasePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS file_records (
        path BLOB PRIMARY KEY,
        size INTEGER NOT NULL,
        mod_time INTEGER,
        hash TEXT,
        updated_at INTEGER NOT NULL
);
`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// WriteRecord inserts or updates a record. Writes are batched in
// transactions, Flush or Close commits the last batch.
func (s *Store) WriteRecord(rec fhl.FileRecord) error {
	return s.Upsert(context.Background(), rec)
}

// Upsert inserts or updates a record.
func (s *Store) Upsert(ctx context.Context, rec fhl.FileRecord) error {
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO file_records(path, size, mod_time, hash, updated_at)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
        size=excluded.size,
        mod_time=excluded.mod_time,
        hash=excluded.hash,
        updated_at=excluded.updated_at
`)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("prepare upsert: %w", err)
		}
		s.tx, s.upsert = tx, stmt
	}

	var modTime sql.NullInt64
	if rec.HasModTime() {
		modTime = sql.NullInt64{Int64: rec.ModTime.Unix(), Valid: true}
	}
	var hash sql.NullString
	if rec.HasHash() {
		hash = sql.NullString{String: rec.Hash, Valid: true}
	}

	if _, err := s.upsert.ExecContext(ctx, []byte(rec.Path), int64(rec.Size), modTime, hash, time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert record %s: %w", fhl.EncodePath(rec.Path), err)
	}

	s.pending++
	if s.pending >= batchSize {
		return s.Flush()
	}
	return nil
}

// Flush commits pending writes
func (s *Store) Flush() error {
	if s.tx == nil {
		return nil
	}
	s.upsert.Close()
	err := s.tx.Commit()
	s.tx, s.upsert, s.pending = nil, nil, 0
	if err != nil {
		return fmt.Errorf("commit records: %w", err)
	}
	return nil
}

// LoadAll retrieves every persisted record in path order.
func (s *Store) LoadAll(ctx context.Context) ([]fhl.FileRecord, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path, size, mod_time, hash FROM file_records ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []fhl.FileRecord
	for rows.Next() {
		var (
			path    []byte
			size    int64
			modTime sql.NullInt64
			hash    sql.NullString
		)
		if scanErr := rows.Scan(&path, &size, &modTime, &hash); scanErr != nil {
			return nil, fmt.Errorf("scan record: %w", scanErr)
		}

		record := fhl.FileRecord{
			Path: string(path),
			Size: uint64(size),
		}
		if modTime.Valid {
			record.ModTime = time.Unix(modTime.Int64, 0).UTC()
		}
		if hash.Valid {
			record.Hash = hash.String
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

// Count returns the number of stored records
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.Flush(); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM file_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// LoadCache opens the database at path and returns its records as a cache
func LoadCache(ctx context.Context, path string) (*fhl.CacheStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open cache database %s: %w", path, err)
	}
	store, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	records, err := store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	fhl.VerboseLog(1, "Loaded %d cache records from %s", len(records), path)
	return fhl.NewCacheStore(records), nil
}

// Close commits pending writes and releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	flushErr := s.Flush()
	err := s.db.Close()
	s.db = nil
	if flushErr != nil {
		return flushErr
	}
	return err
}
