// Package query compiles declarative query specifications into document predicates.
//
// A specification maps field names to either a literal (equality) or an operator
// mapping such as {"$regex": "Big"}. All fields are AND-ed together:
//
//	q, err := query.Compile(map[string]interface{}{
//		"colour": "yellow",
//		"name":   map[string]interface{}{"$regex": "^Big"},
//	})
//
// Unknown operators are rejected with *domain.InvalidQueryError.
package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/adfharrison1/go-filestore/pkg/domain"
)

// Operator represents a query operator (e.g. $eq, $regex)
type Operator string

const (
	OpEq      Operator = "$eq"
	OpNe      Operator = "$ne"
	OpGt      Operator = "$gt"
	OpGte     Operator = "$gte"
	OpLt      Operator = "$lt"
	OpLte     Operator = "$lte"
	OpIn      Operator = "$in"
	OpRegex   Operator = "$regex"
	OpOptions Operator = "$options"
)

// DefaultRegexCacheSize is the number of compiled patterns a Compiler keeps
const DefaultRegexCacheSize = 128

// Predicate reports whether a document satisfies a query
type Predicate func(doc domain.Document) bool

// Condition is one field constraint of a compiled query
type Condition interface {
	Field() string
	Match(doc domain.Document) bool
}

// Equals matches when the field is present and deep-equal to Value
type Equals struct {
	Path  string
	Value interface{}
}

func (c Equals) Field() string { return c.Path }

func (c Equals) Match(doc domain.Document) bool {
	actual, exists := doc[c.Path]
	return exists && domain.ValuesEqual(actual, c.Value)
}

// NotEquals matches when the field is missing or differs from Value
type NotEquals struct {
	Path  string
	Value interface{}
}

func (c NotEquals) Field() string { return c.Path }

func (c NotEquals) Match(doc domain.Document) bool {
	actual, exists := doc[c.Path]
	return !exists || !domain.ValuesEqual(actual, c.Value)
}

// In matches when the field equals any of Values
type In struct {
	Path   string
	Values []interface{}
}

func (c In) Field() string { return c.Path }

func (c In) Match(doc domain.Document) bool {
	actual, exists := doc[c.Path]
	if !exists {
		return false
	}
	for _, v := range c.Values {
		if domain.ValuesEqual(actual, v) {
			return true
		}
	}
	return false
}

// Compare matches ordered comparisons between values of the same kind
type Compare struct {
	Path  string
	Op    Operator
	Value interface{}
}

func (c Compare) Field() string { return c.Path }

func (c Compare) Match(doc domain.Document) bool {
	actual, exists := doc[c.Path]
	if !exists || !sameKind(actual, c.Value) {
		return false
	}
	cmp := domain.CompareValues(actual, c.Value)
	switch c.Op {
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	}
	return false
}

// Regex matches when the stringified field value contains a match for Pattern
type Regex struct {
	Path    string
	Pattern *regexp.Regexp
}

func (c Regex) Field() string { return c.Path }

func (c Regex) Match(doc domain.Document) bool {
	actual, exists := doc[c.Path]
	if !exists || actual == nil {
		return false
	}
	return c.Pattern.MatchString(domain.Stringify(actual))
}

// Query is a compiled query specification
type Query struct {
	conditions []Condition
}

// Match reports whether doc satisfies every condition
func (q *Query) Match(doc domain.Document) bool {
	for _, c := range q.conditions {
		if !c.Match(doc) {
			return false
		}
	}
	return true
}

// Predicate returns the query as a function value
func (q *Query) Predicate() Predicate {
	return q.Match
}

// Conditions returns the compiled conditions in field order
func (q *Query) Conditions() []Condition {
	return q.conditions
}

// EqualityValues returns the literal of every Equals condition, keyed by field.
// Index planning uses these to narrow candidates.
func (q *Query) EqualityValues() map[string]interface{} {
	values := make(map[string]interface{})
	for _, c := range q.conditions {
		if eq, ok := c.(Equals); ok {
			values[eq.Path] = eq.Value
		}
	}
	return values
}

// IsEmpty reports whether the query matches every document
func (q *Query) IsEmpty() bool {
	return len(q.conditions) == 0
}

// Compiler compiles queries, caching compiled regular expressions.
type Compiler struct {
	patterns *LRUCache[string, *regexp.Regexp]
}

// NewCompiler creates a compiler whose pattern cache holds cacheSize entries
func NewCompiler(cacheSize int) *Compiler {
	if cacheSize <= 0 {
		cacheSize = DefaultRegexCacheSize
	}
	return &Compiler{patterns: NewLRUCache[string, *regexp.Regexp](cacheSize)}
}

// Compile compiles spec without a pattern cache
func Compile(spec map[string]interface{}) (*Query, error) {
	return (&Compiler{}).Compile(spec)
}

// Compile converts a query specification into a Query.
// An empty or nil specification matches every document.
func (c *Compiler) Compile(spec map[string]interface{}) (*Query, error) {
	fields := make([]string, 0, len(spec))
	for field := range spec {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	q := &Query{}
	for _, field := range fields {
		if strings.HasPrefix(field, "$") {
			return nil, &domain.InvalidQueryError{Field: field, Operator: field, Reason: "unsupported top-level operator"}
		}
		conds, err := c.compileField(field, spec[field])
		if err != nil {
			return nil, err
		}
		q.conditions = append(q.conditions, conds...)
	}
	return q, nil
}

func (c *Compiler) compileField(field string, value interface{}) ([]Condition, error) {
	ops, isOperator, err := operatorMap(field, value)
	if err != nil {
		return nil, err
	}
	if !isOperator {
		return []Condition{Equals{Path: field, Value: value}}, nil
	}

	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)

	var conds []Condition
	for _, name := range names {
		arg := ops[name]
		switch Operator(name) {
		case OpEq:
			conds = append(conds, Equals{Path: field, Value: arg})
		case OpNe:
			conds = append(conds, NotEquals{Path: field, Value: arg})
		case OpGt, OpGte, OpLt, OpLte:
			conds = append(conds, Compare{Path: field, Op: Operator(name), Value: arg})
		case OpIn:
			values, ok := arg.([]interface{})
			if !ok {
				return nil, &domain.InvalidQueryError{Field: field, Operator: name, Reason: "value must be a list"}
			}
			conds = append(conds, In{Path: field, Values: values})
		case OpRegex:
			re, err := c.compileRegex(field, arg, ops[string(OpOptions)])
			if err != nil {
				return nil, err
			}
			conds = append(conds, Regex{Path: field, Pattern: re})
		case OpOptions:
			if _, ok := ops[string(OpRegex)]; !ok {
				return nil, &domain.InvalidQueryError{Field: field, Operator: name, Reason: "$options requires $regex"}
			}
		default:
			return nil, &domain.InvalidQueryError{Field: field, Operator: name, Reason: "unknown operator"}
		}
	}
	return conds, nil
}

// operatorMap reports whether value is an operator mapping ({"$op": arg, ...}).
// A mapping without $ keys is a nested document literal; mixing both is rejected.
func operatorMap(field string, value interface{}) (map[string]interface{}, bool, error) {
	var m map[string]interface{}
	switch v := value.(type) {
	case map[string]interface{}:
		m = v
	case domain.Document:
		m = v
	default:
		return nil, false, nil
	}

	operators := 0
	for key := range m {
		if strings.HasPrefix(key, "$") {
			operators++
		}
	}
	switch {
	case operators == 0:
		return nil, false, nil
	case operators != len(m):
		return nil, false, &domain.InvalidQueryError{Field: field, Reason: "cannot mix operators and literal fields"}
	}
	return m, true, nil
}

func (c *Compiler) compileRegex(field string, arg, options interface{}) (*regexp.Regexp, error) {
	var pattern, flags string
	switch v := arg.(type) {
	case string:
		pattern = v
	case []interface{}:
		if len(v) == 0 || len(v) > 2 {
			return nil, &domain.InvalidQueryError{Field: field, Operator: string(OpRegex), Reason: "expected [pattern, flags]"}
		}
		p, ok := v[0].(string)
		if !ok {
			return nil, &domain.InvalidQueryError{Field: field, Operator: string(OpRegex), Reason: "pattern must be a string"}
		}
		pattern = p
		if len(v) == 2 {
			f, ok := v[1].(string)
			if !ok {
				return nil, &domain.InvalidQueryError{Field: field, Operator: string(OpRegex), Reason: "flags must be a string"}
			}
			flags = f
		}
	case *regexp.Regexp:
		return v, nil
	default:
		return nil, &domain.InvalidQueryError{Field: field, Operator: string(OpRegex), Reason: fmt.Sprintf("pattern must be a string, got %T", arg)}
	}

	if options != nil {
		o, ok := options.(string)
		if !ok {
			return nil, &domain.InvalidQueryError{Field: field, Operator: string(OpOptions), Reason: "options must be a string"}
		}
		flags += o
	}

	for _, f := range flags {
		if !strings.ContainsRune("ims", f) {
			return nil, &domain.InvalidQueryError{Field: field, Operator: string(OpRegex), Reason: fmt.Sprintf("unsupported flag %q", f)}
		}
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}

	if c.patterns != nil {
		if re, ok := c.patterns.Get(pattern); ok {
			return re, nil
		}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &domain.InvalidQueryError{Field: field, Operator: string(OpRegex), Reason: err.Error()}
	}
	if c.patterns != nil {
		c.patterns.Put(pattern, re)
	}
	return re, nil
}

func sameKind(a, b interface{}) bool {
	_, an := domain.ToFloat64(a)
	_, bn := domain.ToFloat64(b)
	if an || bn {
		return an && bn
	}
	_, as := a.(string)
	_, bs := b.(string)
	return as && bs
}
