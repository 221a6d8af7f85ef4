// Package schema validates documents against a JSON Schema before they reach the store.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/adfharrison1/go-filestore/pkg/domain"
)

// ErrInvalidDocument matches every validation failure
var ErrInvalidDocument = errors.New("document invalid against schema")

// ValidationError lists the schema violations of one document
type ValidationError struct {
	Index  int
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document %d invalid against schema: %s", e.Index, strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidDocument }

// Validator is a compiled JSON Schema
type Validator struct {
	schema *gojsonschema.Schema
}

// IsEmpty reports whether spec carries no constraints (nil, {} or "")
func IsEmpty(spec interface{}) bool {
	switch v := spec.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case map[string]interface{}:
		return len(v) == 0
	}
	return false
}

// Compile compiles a schema given as a JSON string or a decoded JSON object
func Compile(spec interface{}) (*Validator, error) {
	var loader gojsonschema.JSONLoader
	switch v := spec.(type) {
	case string:
		loader = gojsonschema.NewStringLoader(v)
	default:
		loader = gojsonschema.NewGoLoader(v)
	}

	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("invalid json schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks every document and returns the first violation
func (v *Validator) Validate(docs []domain.Document) error {
	for i, doc := range docs {
		result, err := v.schema.Validate(gojsonschema.NewGoLoader(map[string]interface{}(doc)))
		if err != nil {
			return fmt.Errorf("schema validation error: %w", err)
		}
		if !result.Valid() {
			var errs []string
			for _, desc := range result.Errors() {
				errs = append(errs, desc.String())
			}
			return &ValidationError{Index: i, Errors: errs}
		}
	}
	return nil
}
