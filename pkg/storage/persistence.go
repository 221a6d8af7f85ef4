package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileBackend persists each namespace to <dir>/<name>.db as an lz4 compressed
// msgpack snapshot.
type FileBackend struct {
	dir  string
	opts BackendOptions
	reg  *registry

	saveMu    sync.Mutex // serialises writes of snapshot files
	autosave  *autosaver
	startOnce sync.Once
}

// NewFileBackend creates a file backend rooted at dir
func NewFileBackend(dir string, options ...BackendOption) *FileBackend {
	opts := defaultBackendOptions()
	for _, option := range options {
		option(&opts)
	}

	b := &FileBackend{
		dir:  dir,
		opts: opts,
		reg:  newRegistry(),
	}
	b.autosave = newAutosaver(b.reg, b.Save, opts.saveInterval, opts.logger)
	return b
}

// Dir returns the data directory
func (b *FileBackend) Dir() string {
	return b.dir
}

// Path returns the snapshot file of a namespace
func (b *FileBackend) Path(name string) string {
	return filepath.Join(b.dir, name+FileExtension)
}

// Open loads (or creates) the named namespace. The data directory must be writable.
func (b *FileBackend) Open(ctx context.Context, name string) (*Database, error) {
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid database name %q", name)
	}

	db, err := b.reg.open(ctx, name, b.load)
	if err != nil {
		return nil, err
	}

	if b.opts.backgroundSave {
		b.startOnce.Do(b.autosave.start)
	}
	return db, nil
}

func (b *FileBackend) load(ctx context.Context, name string) (*StorageData, error) {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := checkWritable(b.dir); err != nil {
		return nil, err
	}

	file, err := os.Open(b.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := DecodeSnapshot(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file.Name(), err)
	}
	return data, nil
}

// AfterWrite saves db immediately when transaction saves are enabled
func (b *FileBackend) AfterWrite(ctx context.Context, db *Database) error {
	if !b.opts.transactionSave {
		return nil
	}
	return b.Save(ctx, db)
}

// Save writes the namespace snapshot to a temporary file and renames it into place.
func (b *FileBackend) Save(ctx context.Context, db *Database) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// The snapshot is taken under saveMu so files land in version order.
	b.saveMu.Lock()
	defer b.saveMu.Unlock()
	data, version := db.Snapshot()

	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, "."+db.Name()+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := EncodeSnapshot(tmp, data, b.opts.compress); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmpName, b.Path(db.Name())); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	db.MarkSaved(version)
	return nil
}

// SaveAll saves every dirty namespace
func (b *FileBackend) SaveAll(ctx context.Context) error {
	return saveAll(ctx, b.reg.dirty(), b.Save)
}

// Close stops background saves and flushes dirty namespaces
func (b *FileBackend) Close(ctx context.Context) error {
	b.autosave.stop()
	return b.SaveAll(ctx)
}

func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return fmt.Errorf("data directory %s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
