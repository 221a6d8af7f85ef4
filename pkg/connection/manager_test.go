package connection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-filestore/pkg/domain"
	"github.com/adfharrison1/go-filestore/pkg/storage"
)

// failingBackend opens namespaces in memory but fails every open or write on demand
type failingBackend struct {
	*storage.MemoryBackend
	openErr  error
	writeErr error
}

func (b *failingBackend) Open(ctx context.Context, name string) (*storage.Database, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	return b.MemoryBackend.Open(ctx, name)
}

func (b *failingBackend) AfterWrite(ctx context.Context, db *storage.Database) error {
	return b.writeErr
}

func connected(t *testing.T, backend storage.Backend, database string) *Manager {
	t.Helper()
	m := NewManager(backend)
	require.NoError(t, m.Connect(context.Background(), database, "users"))
	return m
}

func insertMuppets(t *testing.T, m *Manager) []domain.Document {
	t.Helper()
	docs, err := m.Insert(context.Background(), InsertRequest{
		Collection: "users",
		Data: []interface{}{
			map[string]interface{}{"name": "Ernie"},
			map[string]interface{}{"name": "Oscar"},
			map[string]interface{}{"name": "BigBird"},
		},
	})
	require.NoError(t, err)
	return docs
}

func names(docs []domain.Document) []string {
	out := make([]string, len(docs))
	for i, doc := range docs {
		out[i], _ = doc["name"].(string)
	}
	return out
}

func TestManager_ReadyState(t *testing.T) {
	m := NewManager(storage.NewMemoryBackend())
	assert.Equal(t, StateDisconnected, m.ReadyState())
	assert.Equal(t, "disconnected", m.ReadyState().String())

	select {
	case <-m.Ready():
		t.Fatal("ready before connect")
	default:
	}

	require.NoError(t, m.Connect(context.Background(), "content", "users"))
	assert.Equal(t, StateConnected, m.ReadyState())
	assert.Equal(t, "connected", m.ReadyState().String())

	select {
	case <-m.Ready():
	default:
		t.Fatal("ready not closed after connect")
	}

	// connecting again does not close the channel twice
	require.NoError(t, m.Connect(context.Background(), "content", "users"))
	require.NoError(t, m.Connect(context.Background(), "auth", ""))
	assert.Equal(t, "auth", m.Database().Name())
}

func TestManager_NotConnected(t *testing.T) {
	ctx := context.Background()
	m := NewManager(storage.NewMemoryBackend())

	_, err := m.Insert(ctx, InsertRequest{Collection: "users", Data: map[string]interface{}{"name": "Ernie"}})
	assert.True(t, errors.Is(err, domain.ErrNotConnected))

	_, err = m.Find(ctx, FindRequest{Collection: "users"})
	assert.True(t, errors.Is(err, domain.ErrNotConnected))

	_, err = m.Update(ctx, UpdateRequest{Collection: "users"})
	assert.True(t, errors.Is(err, domain.ErrNotConnected))

	_, err = m.Delete(ctx, DeleteRequest{Collection: "users"})
	assert.True(t, errors.Is(err, domain.ErrNotConnected))

	_, err = m.GetCollection(ctx, "users")
	var notConnected *domain.NotConnectedError
	require.True(t, errors.As(err, &notConnected))
	assert.Equal(t, "getCollection", notConnected.Operation)

	_, err = m.GetIndexes(ctx, nil)
	assert.True(t, errors.Is(err, domain.ErrNotConnected))

	assert.Nil(t, m.Database())
	assert.NoError(t, m.Close(ctx))
}

func TestManager_ConnectionError(t *testing.T) {
	backend := &failingBackend{MemoryBackend: storage.NewMemoryBackend(), openErr: errors.New("disk unavailable")}
	m := NewManager(backend)

	err := m.Connect(context.Background(), "content", "users")
	require.Error(t, err)

	var connErr *domain.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "content", connErr.Database)
	assert.Equal(t, StateDisconnected, m.ReadyState())
}

func TestManager_ConnectionErrorOnUnwritablePath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	err := NewManager(storage.NewFileBackend(file)).Connect(context.Background(), "content", "")
	assert.True(t, errors.Is(err, domain.ErrConnection))
}

func TestManager_WriteFailureSurfaces(t *testing.T) {
	backend := &failingBackend{MemoryBackend: storage.NewMemoryBackend()}
	m := connected(t, backend, "content")

	ctx := context.Background()

	backend.writeErr = errors.New("disk full")
	inserted, err := m.Insert(ctx, InsertRequest{Collection: "users", Data: map[string]interface{}{"name": "Ernie"}})
	assert.True(t, errors.Is(err, domain.ErrConnection))
	require.Len(t, inserted, 1)
	assert.Contains(t, inserted[0], domain.IDField)

	updated, err := m.Update(ctx, UpdateRequest{
		Query:      map[string]interface{}{"name": "Ernie"},
		Collection: "users",
		Update:     map[string]interface{}{"$set": map[string]interface{}{"age": 6}},
	})
	assert.True(t, errors.Is(err, domain.ErrConnection))
	require.Len(t, updated, 1)
	assert.Equal(t, 6, updated[0]["age"])

	// the write stays applied in memory
	result, err := m.Find(ctx, FindRequest{Collection: "users"})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, 6, result.Results[0]["age"])

	deleted, err := m.Delete(ctx, DeleteRequest{Collection: "users", Query: map[string]interface{}{"name": "Ernie"}})
	assert.True(t, errors.Is(err, domain.ErrConnection))
	assert.Equal(t, 1, deleted)
}

func TestManager_InsertIdentifiers(t *testing.T) {
	ctx := context.Background()
	m := connected(t, storage.NewMemoryBackend(), "content")

	docs := insertMuppets(t, m)
	require.Len(t, docs, 3)

	seen := map[interface{}]bool{}
	for _, doc := range docs {
		id, ok := doc.ID()
		require.True(t, ok)
		assert.False(t, seen[id], "duplicate _id %v", id)
		seen[id] = true
	}

	supplied, err := m.Insert(ctx, InsertRequest{Collection: "users", Data: map[string]interface{}{"_id": "custom-1", "name": "Elmo"}})
	require.NoError(t, err)
	assert.Equal(t, "custom-1", supplied[0][domain.IDField])

	// identifiers are stable across reads
	result, err := m.Find(ctx, FindRequest{Collection: "users"})
	require.NoError(t, err)
	for i, doc := range docs {
		assert.Equal(t, doc[domain.IDField], result.Results[i][domain.IDField])
	}

	_, err = m.Insert(ctx, InsertRequest{Collection: "users", Data: "not a document"})
	assert.True(t, errors.Is(err, domain.ErrInvalidDocument))
}

func TestManager_Find(t *testing.T) {
	ctx := context.Background()
	m := connected(t, storage.NewMemoryBackend(), "content")
	insertMuppets(t, m)

	tests := []struct {
		name    string
		query   map[string]interface{}
		options *domain.FindOptions
		want    []string
	}{
		{"empty query in insertion order", map[string]interface{}{}, nil, []string{"Ernie", "Oscar", "BigBird"}},
		{"sort descending", nil, &domain.FindOptions{Sort: []domain.SortKey{{Field: "name", Direction: -1}}}, []string{"Oscar", "Ernie", "BigBird"}},
		{"sort ascending", nil, &domain.FindOptions{Sort: []domain.SortKey{{Field: "name", Direction: 1}}}, []string{"BigBird", "Ernie", "Oscar"}},
		{"limit", nil, &domain.FindOptions{Limit: 2}, []string{"Ernie", "Oscar"}},
		{"limit beyond matches", map[string]interface{}{"name": "Oscar"}, &domain.FindOptions{Limit: 5}, []string{"Oscar"}},
		{"regex", map[string]interface{}{"name": map[string]interface{}{"$regex": "r"}}, nil, []string{"Ernie", "Oscar", "BigBird"}},
		{"regex anchored", map[string]interface{}{"name": map[string]interface{}{"$regex": "^B"}}, nil, []string{"BigBird"}},
		{"no match", map[string]interface{}{"name": "Elmo"}, nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := m.Find(ctx, FindRequest{Query: tt.query, Collection: "users", Options: tt.options})
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(result.Results))
		})
	}
}

func TestManager_FindProjection(t *testing.T) {
	ctx := context.Background()
	m := connected(t, storage.NewMemoryBackend(), "content")
	_, err := m.Insert(ctx, InsertRequest{Collection: "users", Data: map[string]interface{}{"name": "Ernie", "colour": "orange", "age": 6}})
	require.NoError(t, err)

	result, err := m.Find(ctx, FindRequest{Collection: "users", Options: &domain.FindOptions{Fields: map[string]int{"name": 1}}})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)

	doc := result.Results[0]
	assert.Len(t, doc, 2)
	assert.Equal(t, "Ernie", doc["name"])
	assert.Contains(t, doc, domain.IDField)
	assert.Equal(t, map[string]int{"name": 1}, result.Metadata.Fields)
}

func TestManager_FindRejects(t *testing.T) {
	ctx := context.Background()
	m := connected(t, storage.NewMemoryBackend(), "content")

	_, err := m.Find(ctx, FindRequest{Collection: "users", Query: map[string]interface{}{"name": map[string]interface{}{"$where": "1"}}})
	assert.True(t, errors.Is(err, domain.ErrInvalidQuery))

	_, err = m.Find(ctx, FindRequest{Collection: "users", Options: &domain.FindOptions{Limit: -1}})
	assert.True(t, errors.Is(err, domain.ErrInvalidQuery))

	_, err = m.Find(ctx, FindRequest{})
	assert.Error(t, err)
}

func TestManager_Update(t *testing.T) {
	ctx := context.Background()
	m := connected(t, storage.NewMemoryBackend(), "content")
	insertMuppets(t, m)

	updated, err := m.Update(ctx, UpdateRequest{
		Query:      map[string]interface{}{"name": "Ernie"},
		Collection: "users",
		Update:     map[string]interface{}{"$set": map[string]interface{}{"age": 6}},
	})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, 6, updated[0]["age"])

	updated, err = m.Update(ctx, UpdateRequest{
		Query:      map[string]interface{}{"name": "Ernie"},
		Collection: "users",
		Update:     map[string]interface{}{"$inc": map[string]interface{}{"age": 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(16), updated[0]["age"])

	// Oscar has no age so $inc leaves him untouched
	updated, err = m.Update(ctx, UpdateRequest{
		Query:      map[string]interface{}{"name": "Oscar"},
		Collection: "users",
		Update:     map[string]interface{}{"$inc": map[string]interface{}{"age": 10}},
	})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.NotContains(t, updated[0], "age")

	// non-matching documents are unchanged
	result, err := m.Find(ctx, FindRequest{Collection: "users", Query: map[string]interface{}{"name": "BigBird"}})
	require.NoError(t, err)
	assert.NotContains(t, result.Results[0], "age")
}

func TestManager_UpdateCopiesSetValues(t *testing.T) {
	ctx := context.Background()
	m := connected(t, storage.NewMemoryBackend(), "content")
	insertMuppets(t, m)

	tags := []interface{}{"a"}
	addr := map[string]interface{}{"city": "x"}
	updated, err := m.Update(ctx, UpdateRequest{
		Query:      map[string]interface{}{"name": map[string]interface{}{"$regex": "^[EO]"}},
		Collection: "users",
		Update:     map[string]interface{}{"$set": map[string]interface{}{"tags": tags, "addr": addr}},
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)

	tags[0] = "mutated"
	addr["city"] = "mutated"

	result, err := m.Find(ctx, FindRequest{Collection: "users", Query: map[string]interface{}{"name": map[string]interface{}{"$regex": "^[EO]"}}})
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	for _, doc := range result.Results {
		assert.Equal(t, []interface{}{"a"}, doc["tags"])
		assert.Equal(t, map[string]interface{}{"city": "x"}, doc["addr"])
	}

	// matched documents do not share the value either
	_, err = m.Update(ctx, UpdateRequest{
		Query:      map[string]interface{}{"name": "Ernie"},
		Collection: "users",
		Update:     map[string]interface{}{"$set": map[string]interface{}{"addr": map[string]interface{}{"city": "y"}}},
	})
	require.NoError(t, err)
	result, err = m.Find(ctx, FindRequest{Collection: "users", Query: map[string]interface{}{"name": "Oscar"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"city": "x"}, result.Results[0]["addr"])
}

func TestManager_ReadsDoNotCreateCollections(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	m := NewManager(backend)
	require.NoError(t, m.Connect(ctx, "content", ""))
	db := m.Database()
	require.False(t, db.Dirty())

	result, err := m.Find(ctx, FindRequest{Collection: "ghost"})
	require.NoError(t, err)
	assert.Empty(t, result.Results)
	assert.Equal(t, 0, result.Metadata.TotalCount)

	updated, err := m.Update(ctx, UpdateRequest{Collection: "ghost", Update: map[string]interface{}{"$set": map[string]interface{}{"a": 1}}})
	require.NoError(t, err)
	assert.Empty(t, updated)

	deleted, err := m.Delete(ctx, DeleteRequest{Collection: "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	count, err := m.Count(ctx, CountRequest{Collection: "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.Empty(t, db.CollectionNames())
	assert.False(t, db.Dirty())

	// invalid queries are still rejected for missing collections
	_, err = m.Find(ctx, FindRequest{Collection: "ghost", Query: map[string]interface{}{"a": map[string]interface{}{"$where": "1"}}})
	assert.True(t, errors.Is(err, domain.ErrInvalidQuery))
}

func TestManager_Count(t *testing.T) {
	ctx := context.Background()
	m := connected(t, storage.NewMemoryBackend(), "content")
	insertMuppets(t, m)

	count, err := m.Count(ctx, CountRequest{Collection: "users"})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = m.Count(ctx, CountRequest{Collection: "users", Query: map[string]interface{}{"name": map[string]interface{}{"$regex": "^B"}}})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = NewManager(storage.NewMemoryBackend()).Count(ctx, CountRequest{Collection: "users"})
	assert.True(t, errors.Is(err, domain.ErrNotConnected))
}

func TestManager_Delete(t *testing.T) {
	ctx := context.Background()
	m := connected(t, storage.NewMemoryBackend(), "content")
	insertMuppets(t, m)

	deleted, err := m.Delete(ctx, DeleteRequest{Collection: "users", Query: map[string]interface{}{"name": map[string]interface{}{"$regex": "^[EO]"}}})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	result, err := m.Find(ctx, FindRequest{Collection: "users"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BigBird"}, names(result.Results))

	deleted, err = m.Delete(ctx, DeleteRequest{Collection: "users", Query: map[string]interface{}{"name": "Ernie"}})
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestManager_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	content := connected(t, backend, "content")
	auth := connected(t, backend, "auth")
	sameContent := connected(t, backend, "content")

	insertMuppets(t, content)

	result, err := auth.Find(ctx, FindRequest{Collection: "users"})
	require.NoError(t, err)
	assert.Empty(t, result.Results)

	result, err = sameContent.Find(ctx, FindRequest{Collection: "users"})
	require.NoError(t, err)
	assert.Len(t, result.Results, 3)
}

func TestManager_Indexes(t *testing.T) {
	ctx := context.Background()
	m := connected(t, storage.NewMemoryBackend(), "content")
	insertMuppets(t, m)

	coll, err := m.GetCollection(ctx, "users")
	require.NoError(t, err)

	results, err := m.Index(ctx, coll, []domain.IndexDescriptor{{Keys: map[string]int{"name": 1}}})
	require.NoError(t, err)
	assert.Equal(t, []domain.IndexResult{{Index: "name"}}, results)

	// recreating is idempotent
	_, err = m.Index(ctx, coll, []domain.IndexDescriptor{{Keys: map[string]int{"name": 1}}, {Keys: map[string]int{"age": 1}}})
	require.NoError(t, err)

	infos, err := m.GetIndexes(ctx, coll)
	require.NoError(t, err)
	assert.Equal(t, []domain.IndexInfo{{Name: "age"}, {Name: "name"}}, infos)

	// indexes never change results
	result, err := m.Find(ctx, FindRequest{Collection: "users", Query: map[string]interface{}{"name": "Oscar"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Oscar"}, names(result.Results))

	_, err = m.Index(ctx, nil, nil)
	assert.Error(t, err)
}

func TestManager_DatabaseGetCollection(t *testing.T) {
	ctx := context.Background()
	m := connected(t, storage.NewMemoryBackend(), "content")

	coll, err := m.GetCollection(ctx, "users")
	require.NoError(t, err)
	assert.Same(t, coll, m.Database().GetCollection("users"))
	assert.Equal(t, "users", coll.Name())
	assert.Equal(t, []string{"users"}, m.Database().CollectionNames())
}

func TestManager_ConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	m := connected(t, storage.NewMemoryBackend(), "content")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Insert(ctx, InsertRequest{Collection: "users", Data: []interface{}{
				map[string]interface{}{"n": i},
				map[string]interface{}{"n": i},
			}})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	result, err := m.Find(ctx, FindRequest{Collection: "users"})
	require.NoError(t, err)
	assert.Len(t, result.Results, 40)

	// each batch lands contiguously
	for i := 0; i < 40; i += 2 {
		assert.Equal(t, result.Results[i]["n"], result.Results[i+1]["n"])
	}
}

func TestManager_PersistsThroughFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m := connected(t, storage.NewFileBackend(dir, storage.WithTransactionSave(true)), "content")
	insertMuppets(t, m)
	require.NoError(t, m.Close(ctx))

	reopened := connected(t, storage.NewFileBackend(dir), "content")
	result, err := reopened.Find(ctx, FindRequest{Collection: "users"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ernie", "Oscar", "BigBird"}, names(result.Results))
}
