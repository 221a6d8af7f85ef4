package storage

import (
	"sort"
	"sync"
	"time"
)

// Database is one isolated namespace of collections. Collections are created
// lazily on first access and never removed implicitly.
type Database struct {
	name string

	mu          sync.Mutex // guards collections and every collection's contents
	collections map[string]*Collection

	version      uint64 // bumped on every mutation
	savedVersion uint64
}

// NewDatabase creates an empty namespace
func NewDatabase(name string) *Database {
	return &Database{
		name:        name,
		collections: make(map[string]*Collection),
	}
}

// Name returns the namespace name
func (db *Database) Name() string {
	return db.name
}

// GetCollection returns the named collection, creating it empty on first request.
// Repeated calls return the same handle.
func (db *Database) GetCollection(name string) *Collection {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.getOrCreateLocked(name)
}

// Collection looks a collection up without creating it
func (db *Database) Collection(name string) (*Collection, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()

	coll, exists := db.collections[name]
	return coll, exists
}

// CollectionNames returns the collection names in lexical order
func (db *Database) CollectionNames() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dirty reports whether the namespace changed since the last MarkSaved
func (db *Database) Dirty() bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.version != db.savedVersion
}

// Snapshot captures the namespace for persistence together with its version.
func (db *Database) Snapshot() (*StorageData, uint64) {
	db.mu.Lock()
	defer db.mu.Unlock()

	data := NewStorageData(db.name)
	for name, coll := range db.collections {
		data.Collections[name] = coll.snapshotLocked()
	}
	data.Metadata["savedAt"] = time.Now().UTC().Format(time.RFC3339)
	return data, db.version
}

// Restore replaces the namespace contents with a snapshot
func (db *Database) Restore(data *StorageData) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.collections = make(map[string]*Collection, len(data.Collections))
	for name, collData := range data.Collections {
		coll := newCollection(db, name)
		coll.restoreLocked(collData)
		db.collections[name] = coll
	}
	db.savedVersion = db.version
}

// MarkSaved records that the snapshot taken at version reached the backend
func (db *Database) MarkSaved(version uint64) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if version > db.savedVersion {
		db.savedVersion = version
	}
}

func (db *Database) getOrCreateLocked(name string) *Collection {
	if coll, exists := db.collections[name]; exists {
		return coll
	}
	coll := newCollection(db, name)
	db.collections[name] = coll
	db.touch()
	return coll
}

// touch marks the namespace dirty; callers hold db.mu
func (db *Database) touch() {
	db.version++
}
