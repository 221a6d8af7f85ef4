package domain

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// ToFloat64 converts any Go numeric type to float64.
// Values decoded from JSON arrive as float64 and values decoded from msgpack arrive as
// sized integers, so every numeric kind is accepted.
func ToFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case nil, string, bool:
		return 0, false
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// IsFinite reports whether value is a number that is neither NaN nor infinite
func IsFinite(value interface{}) bool {
	f, ok := ToFloat64(value)
	return ok && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ToInt64 truncates a finite number toward zero.
func ToInt64(value interface{}) (int64, bool) {
	if !IsFinite(value) {
		return 0, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if rv.Uint() > math.MaxInt64 {
			return 0, false
		}
		return int64(rv.Uint()), true
	}
	f, _ := ToFloat64(value)
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, false
	}
	return int64(math.Trunc(f)), true
}

// ValuesEqual reports deep equality between two document values.
// Numbers compare by value regardless of their Go type.
func ValuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if af, ok := ToFloat64(a); ok {
		bf, ok := ToFloat64(b)
		return ok && af == bf
	}

	if am, ok := asMap(a); ok {
		bm, ok := asMap(b)
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, exists := bm[k]
			if !exists || !ValuesEqual(av, bv) {
				return false
			}
		}
		return true
	}

	if as, ok := asSlice(a); ok {
		bs, ok := asSlice(b)
		if !ok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !ValuesEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

// type ranks for CompareValues
const (
	rankNull = iota
	rankBool
	rankNumber
	rankString
	rankOther
)

func rank(v interface{}) int {
	switch v.(type) {
	case nil:
		return rankNull
	case bool:
		return rankBool
	case string:
		return rankString
	}
	if _, ok := ToFloat64(v); ok {
		return rankNumber
	}
	return rankOther
}

// CompareValues returns -1, 0 or 1 using a total ordering over document values:
// null < booleans < numbers < strings < everything else (compared by text form).
func CompareValues(a, b interface{}) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case rankNull:
		return 0
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case rankNumber:
		af, _ := ToFloat64(a)
		bf, _ := ToFloat64(b)
		return compareOrdered(af, bf)
	case rankString:
		return compareOrdered(a.(string), b.(string))
	default:
		return compareOrdered(Stringify(a), Stringify(b))
	}
}

func compareOrdered[T float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Stringify renders a value the way pattern matching sees it
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case nil:
		return "null"
	default:
		return fmt.Sprint(v)
	}
}

// IndexKey converts a value into a hashable index key.
// Numbers collapse to float64 so that 7 and 7.0 share a key; maps and slices are not indexable.
func IndexKey(v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string, bool:
		return t, true
	}
	if f, ok := ToFloat64(v); ok {
		return f, true
	}
	return nil, false
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Document:
		return m, true
	}
	return nil, false
}

func asSlice(v interface{}) ([]interface{}, bool) {
	if s, ok := v.([]interface{}); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
