// Package shaper orders, pages and projects a matched result set.
package shaper

import (
	"sort"

	"github.com/adfharrison1/go-filestore/pkg/domain"
)

// Entry is a matched document together with its insertion sequence
type Entry struct {
	Seq uint64
	Doc domain.Document
}

// Shape sorts entries, applies skip and limit, and projects the surviving documents.
// Without sort keys the insertion sequence decides the order. Documents in the result
// are copies; the entries are never mutated.
func Shape(entries []Entry, opts domain.FindOptions) *domain.Result {
	ordered := make([]Entry, len(entries))
	copy(ordered, entries)
	Sort(ordered, opts.Sort)

	total := len(ordered)
	page := Page(ordered, opts.Skip, opts.Limit)

	results := make([]domain.Document, len(page))
	for i, e := range page {
		results[i] = Project(e.Doc, opts.Fields)
	}

	return &domain.Result{
		Results:  results,
		Metadata: buildMetadata(total, opts),
	}
}

// Sort orders entries by each key in turn, falling back to insertion sequence.
func Sort(entries []Entry, keys []domain.SortKey) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		for _, key := range keys {
			cmp := domain.CompareValues(fieldValue(a.Doc, key.Field), fieldValue(b.Doc, key.Field))
			if cmp == 0 {
				continue
			}
			if key.Direction < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return a.Seq < b.Seq
	})
}

// Page drops the first skip entries and truncates to limit (limit <= 0 keeps all)
func Page(entries []Entry, skip, limit int) []Entry {
	if skip > 0 {
		if skip >= len(entries) {
			return nil
		}
		entries = entries[skip:]
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

// Project returns a copy of doc holding only the included fields plus _id.
// With no fields the whole document is copied.
func Project(doc domain.Document, fields map[string]int) domain.Document {
	if !hasInclusions(fields) {
		return doc.Clone()
	}

	projected := make(domain.Document, len(fields)+1)
	if id, ok := doc[domain.IDField]; ok {
		projected[domain.IDField] = id
	}
	for field, include := range fields {
		if include == 0 {
			continue
		}
		if v, ok := doc[field]; ok {
			projected[field] = v
		}
	}
	return projected.Clone()
}

func hasInclusions(fields map[string]int) bool {
	for _, include := range fields {
		if include != 0 {
			return true
		}
	}
	return false
}

// fieldValue treats a missing field as null for ordering
func fieldValue(doc domain.Document, field string) interface{} {
	return doc[field]
}

func buildMetadata(total int, opts domain.FindOptions) domain.Metadata {
	md := domain.Metadata{
		TotalCount: total,
		Limit:      opts.Limit,
		Skip:       opts.Skip,
		Page:       1,
		TotalPages: 1,
		Fields:     opts.Fields,
	}
	if opts.Limit > 0 {
		md.Page = opts.Skip/opts.Limit + 1
		md.TotalPages = (total + opts.Limit - 1) / opts.Limit
	}
	if total == 0 {
		md.TotalPages = 0
	}
	return md
}
