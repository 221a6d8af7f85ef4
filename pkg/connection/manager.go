// Package connection binds callers to a database namespace and routes CRUD and
// index operations to the right collection.
//
// A Manager starts in StateDisconnected and moves to StateConnected on the first
// successful Connect. Every other operation fails with *domain.NotConnectedError
// until then.
//
//	m := connection.NewManager(storage.NewFileBackend("data"))
//	if err := m.Connect(ctx, "content", "users"); err != nil {
//		return err
//	}
//	docs, err := m.Insert(ctx, connection.InsertRequest{Collection: "users", Data: domain.Document{"name": "Ernie"}})
package connection

import (
	"context"
	"fmt"
	"sync"

	"github.com/adfharrison1/go-filestore/pkg/domain"
	"github.com/adfharrison1/go-filestore/pkg/query"
	"github.com/adfharrison1/go-filestore/pkg/shaper"
	"github.com/adfharrison1/go-filestore/pkg/storage"
	"github.com/adfharrison1/go-filestore/pkg/update"
)

// State is the readiness of a Manager
type State int32

const (
	StateDisconnected State = 0
	StateConnected    State = 1
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Manager owns the binding to one namespace at a time. Managers sharing a backend
// that connect to the same name see the same data; different names are isolated.
type Manager struct {
	backend  storage.Backend
	compiler *query.Compiler

	mu    sync.RWMutex
	state State
	db    *storage.Database

	ready     chan struct{}
	readyOnce sync.Once
}

// Option configures a Manager
type Option func(*Manager)

// WithRegexCacheSize sets how many compiled $regex patterns are cached
func WithRegexCacheSize(size int) Option {
	return func(m *Manager) {
		m.compiler = query.NewCompiler(size)
	}
}

// NewManager creates a disconnected manager over backend
func NewManager(backend storage.Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:  backend,
		compiler: query.NewCompiler(query.DefaultRegexCacheSize),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect binds the manager to database, creating the namespace on first use and,
// when collection is not empty, the collection too. Connecting again to the bound
// database is a no-op; connecting to another name rebinds the manager.
func (m *Manager) Connect(ctx context.Context, database, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	db := m.db
	if db == nil || db.Name() != database {
		opened, err := m.backend.Open(ctx, database)
		if err != nil {
			return &domain.ConnectionError{Database: database, Err: err}
		}
		db = opened
	}

	if collection != "" {
		db.GetCollection(collection)
	}

	m.db = db
	m.state = StateConnected
	m.readyOnce.Do(func() { close(m.ready) })
	return nil
}

// ReadyState returns the current readiness state
func (m *Manager) ReadyState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Ready is closed once the first Connect succeeds
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// Database returns the bound namespace, or nil before Connect
func (m *Manager) Database() *storage.Database {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

func (m *Manager) database(operation string) (*storage.Database, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != StateConnected || m.db == nil {
		return nil, &domain.NotConnectedError{Operation: operation}
	}
	return m.db, nil
}

func (m *Manager) collection(operation, name string) (*storage.Collection, error) {
	db, err := m.database(operation)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%s: collection name cannot be empty", operation)
	}
	return db.GetCollection(name), nil
}

// existing looks a collection up without creating it. A nil collection with a nil
// error means the namespace has no collection by that name yet.
func (m *Manager) existing(operation, name string) (*storage.Collection, error) {
	db, err := m.database(operation)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%s: collection name cannot be empty", operation)
	}
	coll, _ := db.Collection(name)
	return coll, nil
}

// GetCollection returns the named collection of the bound namespace, creating it if needed
func (m *Manager) GetCollection(ctx context.Context, name string) (*storage.Collection, error) {
	return m.collection("getCollection", name)
}

// InsertRequest carries documents to insert. Schema is accepted for callers that
// validate documents upstream and is not interpreted here.
type InsertRequest struct {
	Data       interface{}
	Collection string
	Schema     interface{}
}

// Insert stores one or more documents and returns them with their _id.
//
// The documents are stored before the backend is told about the write. When that
// fails the inserted documents are returned along with a *domain.ConnectionError
// and stay in memory for the next save.
func (m *Manager) Insert(ctx context.Context, req InsertRequest) ([]domain.Document, error) {
	coll, err := m.collection("insert", req.Collection)
	if err != nil {
		return nil, err
	}

	docs, err := domain.NormalizeDocuments(req.Data)
	if err != nil {
		return nil, err
	}

	inserted := coll.Insert(docs)
	if err := m.afterWrite(ctx, coll); err != nil {
		return inserted, err
	}
	return inserted, nil
}

// FindRequest selects documents with Query and shapes them with Options
type FindRequest struct {
	Query      map[string]interface{}
	Collection string
	Options    *domain.FindOptions
}

// Find returns the matching documents and result metadata. Reading a collection
// that does not exist yields an empty result and does not create it.
func (m *Manager) Find(ctx context.Context, req FindRequest) (*domain.Result, error) {
	coll, err := m.existing("find", req.Collection)
	if err != nil {
		return nil, err
	}

	q, err := m.compiler.Compile(req.Query)
	if err != nil {
		return nil, err
	}

	var opts domain.FindOptions
	if req.Options != nil {
		opts = *req.Options
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if coll == nil {
		return shaper.Shape(nil, opts), nil
	}
	return coll.Find(q, opts), nil
}

// CountRequest counts the documents matching Query
type CountRequest struct {
	Query      map[string]interface{}
	Collection string
}

// Count returns how many documents match, without shaping or copying them
func (m *Manager) Count(ctx context.Context, req CountRequest) (int, error) {
	coll, err := m.existing("count", req.Collection)
	if err != nil {
		return 0, err
	}

	q, err := m.compiler.Compile(req.Query)
	if err != nil {
		return 0, err
	}

	if coll == nil {
		return 0, nil
	}
	return coll.Count(q), nil
}

// UpdateRequest applies Update to every document matching Query
type UpdateRequest struct {
	Query      map[string]interface{}
	Collection string
	Update     map[string]interface{}
}

// Update mutates the matching documents and returns them after the update. As with
// Insert, a failed backend write returns the updated documents with the error.
func (m *Manager) Update(ctx context.Context, req UpdateRequest) ([]domain.Document, error) {
	coll, err := m.existing("update", req.Collection)
	if err != nil {
		return nil, err
	}

	q, err := m.compiler.Compile(req.Query)
	if err != nil {
		return nil, err
	}

	if coll == nil {
		return []domain.Document{}, nil
	}
	updated := coll.Update(q, update.Parse(req.Update))
	if len(updated) > 0 {
		if err := m.afterWrite(ctx, coll); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// DeleteRequest removes every document matching Query
type DeleteRequest struct {
	Query      map[string]interface{}
	Collection string
}

// Delete removes the matching documents and returns how many were removed. A failed
// backend write still reports the removed count alongside the error.
func (m *Manager) Delete(ctx context.Context, req DeleteRequest) (int, error) {
	coll, err := m.existing("delete", req.Collection)
	if err != nil {
		return 0, err
	}

	q, err := m.compiler.Compile(req.Query)
	if err != nil {
		return 0, err
	}

	if coll == nil {
		return 0, nil
	}
	deleted := coll.Delete(q)
	if deleted > 0 {
		if err := m.afterWrite(ctx, coll); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// Index creates an index for every key of every descriptor. Recreating an index
// on the same field replaces it.
func (m *Manager) Index(ctx context.Context, coll *storage.Collection, indexes []domain.IndexDescriptor) ([]domain.IndexResult, error) {
	if _, err := m.database("index"); err != nil {
		return nil, err
	}
	if coll == nil {
		return nil, fmt.Errorf("index: collection handle is nil")
	}

	var results []domain.IndexResult
	for _, desc := range indexes {
		for _, field := range desc.Fields() {
			if err := coll.EnsureIndex(field); err != nil {
				return nil, err
			}
			results = append(results, domain.IndexResult{Index: field})
		}
	}

	if len(results) > 0 {
		if err := m.afterWrite(ctx, coll); err != nil {
			return results, err
		}
	}
	return results, nil
}

// GetIndexes lists the indexes of a collection
func (m *Manager) GetIndexes(ctx context.Context, coll *storage.Collection) ([]domain.IndexInfo, error) {
	if _, err := m.database("getIndexes"); err != nil {
		return nil, err
	}
	if coll == nil {
		return nil, fmt.Errorf("getIndexes: collection handle is nil")
	}

	names := coll.Indexes()
	infos := make([]domain.IndexInfo, len(names))
	for i, name := range names {
		infos[i] = domain.IndexInfo{Name: name}
	}
	return infos, nil
}

// Close saves the bound namespace
func (m *Manager) Close(ctx context.Context) error {
	db := m.Database()
	if db == nil {
		return nil
	}
	if err := m.backend.Save(ctx, db); err != nil {
		return &domain.ConnectionError{Database: db.Name(), Err: err}
	}
	return nil
}

func (m *Manager) afterWrite(ctx context.Context, coll *storage.Collection) error {
	db := coll.Database()
	if err := m.backend.AfterWrite(ctx, db); err != nil {
		return &domain.ConnectionError{Database: db.Name(), Err: err}
	}
	return nil
}
