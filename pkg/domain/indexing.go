package domain

import "sort"

// IndexDescriptor names the fields to index, e.g. {"keys": {"name": 1}}
type IndexDescriptor struct {
	Keys map[string]int `json:"keys"`
}

// Fields returns the descriptor's field names in lexical order
func (d IndexDescriptor) Fields() []string {
	fields := make([]string, 0, len(d.Keys))
	for field := range d.Keys {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// IndexResult is returned for every index created
type IndexResult struct {
	Index string `json:"index"`
}

// IndexInfo describes an existing index
type IndexInfo struct {
	Name string `json:"name"`
}
