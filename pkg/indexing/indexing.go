// Package indexing maintains per-collection secondary indexes.
//
// Indexes are advisory: a collection uses them to narrow the candidates of an
// equality query and still re-checks every candidate against the full predicate.
package indexing

import (
	"fmt"
	"sort"

	"github.com/adfharrison1/go-filestore/pkg/domain"
)

// Index stores a mapping from a field's value to document sequence numbers.
type Index struct {
	Field    string
	Inverted map[interface{}][]uint64
}

// NewIndex creates an index on a specific field.
func NewIndex(field string) *Index {
	return &Index{
		Field:    field,
		Inverted: make(map[interface{}][]uint64),
	}
}

// Add indexes a document under its value for the indexed field.
func (idx *Index) Add(seq uint64, doc domain.Document) {
	val, ok := doc[idx.Field]
	if !ok {
		return
	}
	key, ok := domain.IndexKey(val)
	if !ok {
		return
	}
	idx.Inverted[key] = append(idx.Inverted[key], seq)
}

// Remove drops a document's entry.
func (idx *Index) Remove(seq uint64, doc domain.Document) {
	val, ok := doc[idx.Field]
	if !ok {
		return
	}
	key, ok := domain.IndexKey(val)
	if !ok {
		return
	}
	seqs := idx.Inverted[key]
	for i, s := range seqs {
		if s == seq {
			seqs = append(seqs[:i], seqs[i+1:]...)
			break
		}
	}
	if len(seqs) == 0 {
		delete(idx.Inverted, key)
	} else {
		idx.Inverted[key] = seqs
	}
}

// UpdateIndex updates the index after an insert/update/delete operation.
// oldDoc is nil for inserts and newDoc is nil for deletes.
func (idx *Index) UpdateIndex(seq uint64, oldDoc, newDoc domain.Document) {
	if oldDoc != nil {
		idx.Remove(seq, oldDoc)
	}
	if newDoc != nil {
		idx.Add(seq, newDoc)
	}
}

// Query returns the sequences stored under value. The second result is false when
// value cannot be looked up (maps and slices are never indexed).
func (idx *Index) Query(value interface{}) ([]uint64, bool) {
	key, ok := domain.IndexKey(value)
	if !ok {
		return nil, false
	}
	return idx.Inverted[key], true
}

// IndexEngine holds the indexes of one collection. It is not safe for concurrent
// use; the owning collection serialises access.
type IndexEngine struct {
	indexes map[string]*Index // field name -> index
}

// NewIndexEngine creates a new index engine
func NewIndexEngine() *IndexEngine {
	return &IndexEngine{
		indexes: make(map[string]*Index),
	}
}

// CreateIndex creates (or replaces) the index on fieldName and builds it from docs.
func (ie *IndexEngine) CreateIndex(fieldName string, docs map[uint64]domain.Document) error {
	if fieldName == "" {
		return fmt.Errorf("index field name cannot be empty")
	}
	index := NewIndex(fieldName)
	for seq, doc := range docs {
		index.Add(seq, doc)
	}
	for _, seqs := range index.Inverted {
		sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	}
	ie.indexes[fieldName] = index
	return nil
}

// DropIndex removes an index
func (ie *IndexEngine) DropIndex(fieldName string) error {
	if _, exists := ie.indexes[fieldName]; !exists {
		return fmt.Errorf("index on field %s does not exist", fieldName)
	}
	delete(ie.indexes, fieldName)
	return nil
}

// GetIndexes returns all index names in lexical order
func (ie *IndexEngine) GetIndexes() []string {
	names := make([]string, 0, len(ie.indexes))
	for fieldName := range ie.indexes {
		names = append(names, fieldName)
	}
	sort.Strings(names)
	return names
}

// GetIndex returns the index for a field
func (ie *IndexEngine) GetIndex(fieldName string) (*Index, bool) {
	index, exists := ie.indexes[fieldName]
	return index, exists
}

// UpdateIndexForDocument updates every index when a document changes
func (ie *IndexEngine) UpdateIndexForDocument(seq uint64, oldDoc, newDoc domain.Document) {
	for _, index := range ie.indexes {
		index.UpdateIndex(seq, oldDoc, newDoc)
	}
}

// Reset empties every index but keeps the definitions
func (ie *IndexEngine) Reset() {
	for field := range ie.indexes {
		ie.indexes[field] = NewIndex(field)
	}
}

// Candidates intersects the index lookups of every indexed equality field.
// It returns false when no index applies and the caller must scan.
func (ie *IndexEngine) Candidates(equalities map[string]interface{}) ([]uint64, bool) {
	var results [][]uint64
	for field, value := range equalities {
		index, exists := ie.indexes[field]
		if !exists {
			continue
		}
		seqs, usable := index.Query(value)
		if !usable {
			continue
		}
		results = append(results, seqs)
	}
	if len(results) == 0 {
		return nil, false
	}
	return IntersectSequences(results...), true
}

// IntersectSequences returns the sequences present in every slice, in ascending order.
func IntersectSequences(slices ...[]uint64) []uint64 {
	if len(slices) == 0 {
		return nil
	}

	counts := make(map[uint64]int)
	for _, slice := range slices {
		seen := make(map[uint64]bool, len(slice))
		for _, seq := range slice {
			if !seen[seq] {
				seen[seq] = true
				counts[seq]++
			}
		}
	}

	result := make([]uint64, 0, len(counts))
	for seq, count := range counts {
		if count == len(slices) {
			result = append(result, seq)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
