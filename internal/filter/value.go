package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind tags the shape carried by a Value.
type Kind int

const (
	KindNone Kind = iota
	KindScalar
	KindList
	KindRange
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindRange:
		return "range"
	default:
		return "none"
	}
}

func kindForCategory(c Category) Kind {
	switch c {
	case CategoryEmpty:
		return KindNone
	case CategoryArray, CategoryRelation:
		return KindList
	case CategoryRange:
		return KindRange
	case CategoryEquality, CategoryText, CategoryComparison:
		return KindScalar
	default:
		return KindScalar
	}
}

// Value is the operand of a filter clause. Exactly one shape is populated,
// selected by Kind.
type Value struct {
	kind   Kind
	scalar any
	list   []any
	low    any
	high   any
}

// Scalar wraps a single operand.
func Scalar(v any) Value { return Value{kind: KindScalar, scalar: v} }

// List wraps a list operand.
func List(vs ...any) Value {
	if vs == nil {
		vs = []any{}
	}
	return Value{kind: KindList, list: vs}
}

// Range wraps an inclusive (low, high) pair; either side may be nil.
func Range(low, high any) Value { return Value{kind: KindRange, low: low, high: high} }

// NoValue is the operand of empty-category operators.
func NoValue() Value { return Value{} }

func (v Value) Kind() Kind { return v.kind }

// Scalar returns the scalar operand; ok is false for other shapes.
func (v Value) Scalar() (any, bool) {
	if v.kind != KindScalar {
		return nil, false
	}
	return v.scalar, true
}

// List returns the list operand; ok is false for other shapes.
func (v Value) List() ([]any, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// Bounds returns the range operand; ok is false for other shapes.
func (v Value) Bounds() (low, high any, ok bool) {
	if v.kind != KindRange {
		return nil, nil, false
	}
	return v.low, v.high, true
}

// IsEmpty reports whether the value carries nothing usable: nil or "" for
// scalars, no non-blank items for lists and ranges.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindScalar:
		return blank(v.scalar)
	case KindList:
		for _, item := range v.list {
			if !blank(item) {
				return false
			}
		}
		return true
	case KindRange:
		return blank(v.low) && blank(v.high)
	default:
		return true
	}
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// Equal compares two values structurally.
func (v Value) Equal(o Value) bool {
	a, err1 := json.Marshal(v)
	b, err2 := json.Marshal(o)
	return err1 == nil && err2 == nil && v.kind == o.kind && bytes.Equal(a, b)
}

// MarshalJSON encodes scalars as themselves, lists as arrays, ranges as
// [low, high] and no-value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindScalar:
		return json.Marshal(v.scalar)
	case KindList:
		return json.Marshal(v.list)
	case KindRange:
		return json.Marshal([]any{v.low, v.high})
	default:
		return []byte("null"), nil
	}
}

// DecodeValue interprets raw JSON according to the shape the operator's
// category expects. Unknown operators decode as scalars.
func DecodeValue(operator string, raw json.RawMessage) (Value, error) {
	kind := KindScalar
	if op, ok := Lookup(operator); ok {
		kind = op.ValueKind()
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return emptyOf(kind), nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Value{}, fmt.Errorf("decode filter value: %w", err)
	}
	return Coerce(kind, decoded), nil
}

// Coerce fits an untyped operand into the requested shape. A scalar where a
// list is expected becomes a one-element list; a list where a range is
// expected uses its first two items.
func Coerce(kind Kind, decoded any) Value {
	switch kind {
	case KindNone:
		return NoValue()
	case KindList:
		if decoded == nil {
			return List()
		}
		if items, ok := decoded.([]any); ok {
			return List(items...)
		}
		return List(decoded)
	case KindRange:
		items, ok := decoded.([]any)
		if !ok {
			return Range(decoded, nil)
		}
		var low, high any
		if len(items) > 0 {
			low = items[0]
		}
		if len(items) > 1 {
			high = items[1]
		}
		return Range(low, high)
	default:
		return Scalar(decoded)
	}
}

func emptyOf(kind Kind) Value {
	switch kind {
	case KindList:
		return List()
	case KindRange:
		return Range(nil, nil)
	case KindScalar:
		return Scalar(nil)
	default:
		return NoValue()
	}
}
