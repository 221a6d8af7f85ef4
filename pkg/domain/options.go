package domain

import (
	"fmt"
)

// SortKey orders results by one field; Direction is 1 (ascending) or -1 (descending)
type SortKey struct {
	Field     string `json:"field"`
	Direction int    `json:"direction"`
}

// FindOptions controls ordering, paging and projection of a find
type FindOptions struct {
	Sort   []SortKey      `json:"sort,omitempty"`
	Limit  int            `json:"limit,omitempty"`
	Skip   int            `json:"skip,omitempty"`
	Fields map[string]int `json:"fields,omitempty"`
}

// Validate validates find options
func (o *FindOptions) Validate() error {
	if o.Limit < 0 {
		return fmt.Errorf("%w: limit cannot be negative", ErrInvalidQuery)
	}
	if o.Skip < 0 {
		return fmt.Errorf("%w: skip cannot be negative", ErrInvalidQuery)
	}
	for _, key := range o.Sort {
		if key.Direction != 1 && key.Direction != -1 {
			return &InvalidQueryError{Field: key.Field, Reason: fmt.Sprintf("sort direction must be 1 or -1, got %d", key.Direction)}
		}
	}
	return nil
}

// Metadata describes a shaped result set
type Metadata struct {
	TotalCount int            `json:"totalCount"`
	Limit      int            `json:"limit,omitempty"`
	Skip       int            `json:"skip,omitempty"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
	Fields     map[string]int `json:"fields,omitempty"`
}

// Result is the output of a find
type Result struct {
	Results  []Document `json:"results"`
	Metadata Metadata   `json:"metadata"`
}
