package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS namespaces (
	name       TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteBackend stores every namespace snapshot as a row of a single SQLite file.
type SQLiteBackend struct {
	path string
	opts BackendOptions
	reg  *registry

	dbMu sync.Mutex
	db   *sql.DB

	saveMu sync.Mutex // serialises snapshot and upsert

	autosave  *autosaver
	startOnce sync.Once
}

// NewSQLiteBackend creates a backend writing to the SQLite file at path.
// The file is opened lazily on the first Open.
func NewSQLiteBackend(path string, options ...BackendOption) *SQLiteBackend {
	opts := defaultBackendOptions()
	for _, option := range options {
		option(&opts)
	}

	b := &SQLiteBackend{
		path: path,
		opts: opts,
		reg:  newRegistry(),
	}
	b.autosave = newAutosaver(b.reg, b.Save, opts.saveInterval, opts.logger)
	return b
}

func (b *SQLiteBackend) handle(ctx context.Context) (*sql.DB, error) {
	b.dbMu.Lock()
	defer b.dbMu.Unlock()

	if b.db != nil {
		return b.db, nil
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", b.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	b.db = db
	return db, nil
}

// Open loads (or creates) the named namespace
func (b *SQLiteBackend) Open(ctx context.Context, name string) (*Database, error) {
	db, err := b.reg.open(ctx, name, b.load)
	if err != nil {
		return nil, err
	}
	if b.opts.backgroundSave {
		b.startOnce.Do(b.autosave.start)
	}
	return db, nil
}

func (b *SQLiteBackend) load(ctx context.Context, name string) (*StorageData, error) {
	conn, err := b.handle(ctx)
	if err != nil {
		return nil, err
	}

	var blob []byte
	err = conn.QueryRowContext(ctx, `SELECT data FROM namespaces WHERE name = ?`, name).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read namespace %s: %w", name, err)
	}
	return UnmarshalSnapshot(blob)
}

// AfterWrite saves db immediately when transaction saves are enabled
func (b *SQLiteBackend) AfterWrite(ctx context.Context, db *Database) error {
	if !b.opts.transactionSave {
		return nil
	}
	return b.Save(ctx, db)
}

// Save upserts the namespace snapshot
func (b *SQLiteBackend) Save(ctx context.Context, db *Database) error {
	conn, err := b.handle(ctx)
	if err != nil {
		return err
	}

	b.saveMu.Lock()
	defer b.saveMu.Unlock()
	data, version := db.Snapshot()
	blob, err := MarshalSnapshot(data, b.opts.compress)
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx,
		`INSERT INTO namespaces (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		db.Name(), blob, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save namespace %s: %w", db.Name(), err)
	}

	db.MarkSaved(version)
	return nil
}

// SaveAll saves every dirty namespace
func (b *SQLiteBackend) SaveAll(ctx context.Context) error {
	return saveAll(ctx, b.reg.dirty(), b.Save)
}

// Close stops background saves, flushes dirty namespaces and closes the file
func (b *SQLiteBackend) Close(ctx context.Context) error {
	b.autosave.stop()
	saveErr := b.SaveAll(ctx)

	b.dbMu.Lock()
	defer b.dbMu.Unlock()
	if b.db != nil {
		if err := b.db.Close(); err != nil && saveErr == nil {
			saveErr = err
		}
		b.db = nil
	}
	return saveErr
}
