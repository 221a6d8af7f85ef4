package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-filestore/pkg/domain"
)

func TestSQLiteBackend_SaveAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.sqlite")

	backend := NewSQLiteBackend(path, WithTransactionSave(true))
	db, err := backend.Open(ctx, "content")
	require.NoError(t, err)

	users := db.GetCollection("users")
	users.Insert([]domain.Document{{"_id": "o", "name": "Oscar", "colour": "green"}})
	require.NoError(t, backend.AfterWrite(ctx, db))
	assert.False(t, db.Dirty())

	other, err := backend.Open(ctx, "other")
	require.NoError(t, err)
	other.GetCollection("animals").Insert([]domain.Document{{"name": "Elmo"}})
	require.NoError(t, backend.Close(ctx))

	reopened := NewSQLiteBackend(path)
	defer reopened.Close(ctx)

	content, err := reopened.Open(ctx, "content")
	require.NoError(t, err)
	coll, ok := content.Collection("users")
	require.True(t, ok)
	docs := coll.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "Oscar", docs[0]["name"])

	restored, err := reopened.Open(ctx, "other")
	require.NoError(t, err)
	animals, ok := restored.Collection("animals")
	require.True(t, ok)
	assert.Equal(t, 1, animals.Len())
}

func TestSQLiteBackend_UnknownNamespaceIsEmpty(t *testing.T) {
	ctx := context.Background()
	backend := NewSQLiteBackend(filepath.Join(t.TempDir(), "store.sqlite"))
	defer backend.Close(ctx)

	db, err := backend.Open(ctx, "fresh")
	require.NoError(t, err)
	assert.Empty(t, db.CollectionNames())
}

func TestSQLiteBackend_SaveSnapshotsUnderLock(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.sqlite")
	backend := NewSQLiteBackend(path)
	defer backend.Close(ctx)

	db, err := backend.Open(ctx, "content")
	require.NoError(t, err)
	users := db.GetCollection("users")
	users.Insert([]domain.Document{{"name": "Ernie"}})

	backend.saveMu.Lock()
	done := make(chan error, 1)
	go func() { done <- backend.Save(ctx, db) }()
	time.Sleep(20 * time.Millisecond)
	users.Insert([]domain.Document{{"name": "Oscar"}})
	backend.saveMu.Unlock()
	require.NoError(t, <-done)

	assert.False(t, db.Dirty())

	reopened := NewSQLiteBackend(path)
	defer reopened.Close(ctx)
	content, err := reopened.Open(ctx, "content")
	require.NoError(t, err)
	coll, ok := content.Collection("users")
	require.True(t, ok)
	assert.Equal(t, 2, coll.Len())
}
