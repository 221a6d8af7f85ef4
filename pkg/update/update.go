// Package update applies declarative update specifications ($set, $inc) to documents
// that a caller has already selected.
package update

import (
	"sort"

	"github.com/mitchellh/copystructure"

	"github.com/adfharrison1/go-filestore/pkg/domain"
)

// Operator names a supported update operator
type Operator string

const (
	OpSet Operator = "$set"
	OpInc Operator = "$inc"
)

// Op is one parsed update operation
type Op interface {
	apply(doc domain.Document)
}

// SetOp overwrites (or creates) each listed field. Every document receives its own
// copy of the value, so the update spec and the documents never share maps or slices.
type SetOp struct {
	Fields map[string]interface{}
}

func (op SetOp) apply(doc domain.Document) {
	for _, field := range sortedKeys(op.Fields) {
		if field == domain.IDField {
			continue
		}
		doc[field] = copyValue(op.Fields[field])
	}
}

func copyValue(v interface{}) interface{} {
	switch v.(type) {
	case nil, string, bool, float64, int, int64:
		return v
	}
	copied, err := copystructure.Copy(v)
	if err != nil {
		return v
	}
	return copied
}

// IncOp adds an amount to each listed field when both the current value and the
// amount are finite numbers. Both operands are truncated to integers before adding.
type IncOp struct {
	Fields map[string]interface{}
}

func (op IncOp) apply(doc domain.Document) {
	for _, field := range sortedKeys(op.Fields) {
		if field == domain.IDField {
			continue
		}
		current, ok := domain.ToInt64(doc[field])
		if !ok {
			continue
		}
		amount, ok := domain.ToInt64(op.Fields[field])
		if !ok {
			continue
		}
		doc[field] = current + amount
	}
}

// Update is a parsed update specification
type Update struct {
	ops []Op
}

// Parse converts an update specification into operations. Unknown top-level keys
// and operator bodies that are not mappings are ignored.
func Parse(spec map[string]interface{}) *Update {
	u := &Update{}
	for _, key := range sortedKeys(spec) {
		fields, ok := asFields(spec[key])
		if !ok {
			continue
		}
		switch Operator(key) {
		case OpSet:
			u.ops = append(u.ops, SetOp{Fields: fields})
		case OpInc:
			u.ops = append(u.ops, IncOp{Fields: fields})
		default:
			// unsupported operators are no-ops
		}
	}
	return u
}

// Ops returns the parsed operations in application order
func (u *Update) Ops() []Op {
	return u.ops
}

// Apply mutates target in place. target may be a single document or a slice of
// documents; the documents are returned as a slice.
func (u *Update) Apply(target interface{}) []domain.Document {
	docs, err := domain.NormalizeDocuments(target)
	if err != nil {
		return nil
	}
	for _, doc := range docs {
		for _, op := range u.ops {
			op.apply(doc)
		}
	}
	return docs
}

// ApplyOne mutates a single document
func (u *Update) ApplyOne(doc domain.Document) {
	for _, op := range u.ops {
		op.apply(doc)
	}
}

func asFields(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case domain.Document:
		return m, true
	}
	return nil, false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
