package storage

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/adfharrison1/go-filestore/pkg/domain"
	"github.com/adfharrison1/go-filestore/pkg/indexing"
	"github.com/adfharrison1/go-filestore/pkg/query"
	"github.com/adfharrison1/go-filestore/pkg/shaper"
	"github.com/adfharrison1/go-filestore/pkg/update"
)

// Collection is a handle to a named set of documents inside a Database.
// Every method runs under the owning database's lock.
type Collection struct {
	name string
	db   *Database

	seq     uint64                     // last assigned insertion sequence
	order   []uint64                   // live sequences in insertion order
	docs    map[uint64]domain.Document // sequence -> stored document
	indexes *indexing.IndexEngine
}

func newCollection(db *Database, name string) *Collection {
	return &Collection{
		name:    name,
		db:      db,
		docs:    make(map[uint64]domain.Document),
		indexes: indexing.NewIndexEngine(),
	}
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.name
}

// Database returns the namespace owning the collection
func (c *Collection) Database() *Database {
	return c.db
}

// Insert stores copies of docs, assigning a UUID _id to documents without one.
// Caller-supplied identifiers are kept verbatim. The stored documents are returned.
func (c *Collection) Insert(docs []domain.Document) []domain.Document {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	inserted := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		stored := doc.Clone()
		if stored == nil {
			stored = domain.Document{}
		}
		if _, ok := stored.ID(); !ok {
			stored[domain.IDField] = uuid.NewString()
		}

		c.seq++
		c.docs[c.seq] = stored
		c.order = append(c.order, c.seq)
		c.indexes.UpdateIndexForDocument(c.seq, nil, stored)

		inserted = append(inserted, stored.Clone())
	}
	if len(inserted) > 0 {
		c.db.touch()
	}
	return inserted
}

// Find returns the documents matching q, shaped by opts
func (c *Collection) Find(q *query.Query, opts domain.FindOptions) *domain.Result {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	return shaper.Shape(c.matchLocked(q), opts)
}

// Count returns the number of documents matching q
func (c *Collection) Count(q *query.Query) int {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	return len(c.matchLocked(q))
}

// Len returns the number of stored documents
func (c *Collection) Len() int {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	return len(c.order)
}

// Update applies u to every document matching q and returns copies of the
// updated documents in insertion order.
func (c *Collection) Update(q *query.Query, u *update.Update) []domain.Document {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	matched := c.matchLocked(q)
	updated := make([]domain.Document, 0, len(matched))
	for _, e := range matched {
		before := e.Doc.Clone()
		u.ApplyOne(e.Doc)
		c.indexes.UpdateIndexForDocument(e.Seq, before, e.Doc)
		updated = append(updated, e.Doc.Clone())
	}
	if len(updated) > 0 {
		c.db.touch()
	}
	return updated
}

// Delete removes every document matching q and returns how many were removed
func (c *Collection) Delete(q *query.Query) int {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	matched := c.matchLocked(q)
	if len(matched) == 0 {
		return 0
	}

	removed := make(map[uint64]bool, len(matched))
	for _, e := range matched {
		c.indexes.UpdateIndexForDocument(e.Seq, e.Doc, nil)
		delete(c.docs, e.Seq)
		removed[e.Seq] = true
	}

	kept := c.order[:0]
	for _, seq := range c.order {
		if !removed[seq] {
			kept = append(kept, seq)
		}
	}
	c.order = kept
	c.db.touch()
	return len(matched)
}

// Clear removes every document. The collection and its index definitions stay.
func (c *Collection) Clear() {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	c.docs = make(map[uint64]domain.Document)
	c.order = nil
	c.indexes.Reset()
	c.db.touch()
}

// EnsureIndex creates or rebuilds the index on field
func (c *Collection) EnsureIndex(field string) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if err := c.indexes.CreateIndex(field, c.docs); err != nil {
		return fmt.Errorf("failed to create index on %s.%s: %w", c.name, field, err)
	}
	c.db.touch()
	return nil
}

// Indexes returns the indexed field names in lexical order
func (c *Collection) Indexes() []string {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	return c.indexes.GetIndexes()
}

// Documents returns copies of all documents in insertion order
func (c *Collection) Documents() []domain.Document {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	docs := make([]domain.Document, 0, len(c.order))
	for _, seq := range c.order {
		docs = append(docs, c.docs[seq].Clone())
	}
	return docs
}

// matchLocked collects matching entries in insertion order. Equality conditions on
// indexed fields narrow the candidates; the full predicate is always re-applied.
func (c *Collection) matchLocked(q *query.Query) []shaper.Entry {
	if q == nil || q.IsEmpty() {
		entries := make([]shaper.Entry, 0, len(c.order))
		for _, seq := range c.order {
			entries = append(entries, shaper.Entry{Seq: seq, Doc: c.docs[seq]})
		}
		return entries
	}

	candidates := c.order
	if seqs, ok := c.indexes.Candidates(q.EqualityValues()); ok {
		candidates = seqs
	}

	var entries []shaper.Entry
	for _, seq := range candidates {
		doc, exists := c.docs[seq]
		if !exists {
			continue
		}
		if q.Match(doc) {
			entries = append(entries, shaper.Entry{Seq: seq, Doc: doc})
		}
	}
	return entries
}

func (c *Collection) snapshotLocked() CollectionData {
	data := CollectionData{
		Seq:       c.seq,
		Documents: make([]StoredDocument, 0, len(c.order)),
		Indexes:   c.indexes.GetIndexes(),
	}
	for _, seq := range c.order {
		data.Documents = append(data.Documents, StoredDocument{Seq: seq, Doc: c.docs[seq].Clone()})
	}
	return data
}

func (c *Collection) restoreLocked(data CollectionData) {
	c.seq = data.Seq
	c.docs = make(map[uint64]domain.Document, len(data.Documents))
	c.order = make([]uint64, 0, len(data.Documents))
	for _, stored := range data.Documents {
		doc := domain.Document(stored.Doc)
		if doc == nil {
			doc = domain.Document{}
		}
		c.docs[stored.Seq] = doc
		c.order = append(c.order, stored.Seq)
		if stored.Seq > c.seq {
			c.seq = stored.Seq
		}
	}
	c.indexes = indexing.NewIndexEngine()
	for _, field := range data.Indexes {
		// field names come from a snapshot we wrote, so they are never empty
		_ = c.indexes.CreateIndex(field, c.docs)
	}
}
