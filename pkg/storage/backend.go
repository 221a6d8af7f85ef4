package storage

import (
	"context"
	"fmt"
	"sync"
)

// Backend opens database namespaces and persists them. Managers that share a
// backend and connect to the same name observe the same *Database.
type Backend interface {
	// Open returns the named namespace, loading it from the backing store on first use.
	Open(ctx context.Context, name string) (*Database, error)
	// AfterWrite is called after every successful mutation of db.
	AfterWrite(ctx context.Context, db *Database) error
	// Save persists db unconditionally.
	Save(ctx context.Context, db *Database) error
	// Close flushes dirty namespaces and releases resources.
	Close(ctx context.Context) error
}

// loader fetches the persisted snapshot of a namespace; nil data means none exists yet
type loader func(ctx context.Context, name string) (*StorageData, error)

// registry tracks the namespaces a backend has opened
type registry struct {
	mu        sync.Mutex
	databases map[string]*Database
}

func newRegistry() *registry {
	return &registry{databases: make(map[string]*Database)}
}

func (r *registry) open(ctx context.Context, name string, load loader) (*Database, error) {
	if name == "" {
		return nil, fmt.Errorf("database name cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if db, exists := r.databases[name]; exists {
		return db, nil
	}

	db := NewDatabase(name)
	if load != nil {
		data, err := load(ctx, name)
		if err != nil {
			return nil, err
		}
		if data != nil {
			db.Restore(data)
		}
	}
	r.databases[name] = db
	return db, nil
}

func (r *registry) all() []*Database {
	r.mu.Lock()
	defer r.mu.Unlock()

	dbs := make([]*Database, 0, len(r.databases))
	for _, db := range r.databases {
		dbs = append(dbs, db)
	}
	return dbs
}

func (r *registry) dirty() []*Database {
	var dirty []*Database
	for _, db := range r.all() {
		if db.Dirty() {
			dirty = append(dirty, db)
		}
	}
	return dirty
}

// MemoryBackend keeps namespaces in memory only
type MemoryBackend struct {
	reg *registry
}

// NewMemoryBackend creates a backend without persistence
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{reg: newRegistry()}
}

func (b *MemoryBackend) Open(ctx context.Context, name string) (*Database, error) {
	return b.reg.open(ctx, name, nil)
}

func (b *MemoryBackend) AfterWrite(ctx context.Context, db *Database) error { return nil }

func (b *MemoryBackend) Save(ctx context.Context, db *Database) error { return nil }

func (b *MemoryBackend) Close(ctx context.Context) error { return nil }
