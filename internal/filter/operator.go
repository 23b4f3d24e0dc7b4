package filter

import "sort"

// Category groups operators by the shape of value they expect.
type Category string

const (
	CategoryEquality   Category = "equality"
	CategoryText       Category = "text"
	CategoryComparison Category = "comparison"
	CategoryRange      Category = "range"
	CategoryArray      Category = "array"
	CategoryEmpty      Category = "empty"
	CategoryRelation   Category = "relation"
)

// Categories lists every category in catalogue order.
var Categories = []Category{
	CategoryEquality,
	CategoryArray,
	CategoryText,
	CategoryComparison,
	CategoryRange,
	CategoryEmpty,
	CategoryRelation,
}

// Operator identifiers.
const (
	Equals             = "equals"
	NotEquals          = "notEquals"
	In                 = "in"
	NotIn              = "notIn"
	Contains           = "contains"
	NotContains        = "notContains"
	StartsWith         = "startsWith"
	NotStartsWith      = "notStartsWith"
	EndsWith           = "endsWith"
	NotEndsWith        = "notEndsWith"
	LessThan           = "lessThan"
	LessThanOrEqual    = "lessThanOrEqual"
	GreaterThan        = "greaterThan"
	GreaterThanOrEqual = "greaterThanOrEqual"
	Between            = "between"
	IsEmpty            = "isEmpty"
	IsNotEmpty         = "isNotEmpty"
	Some               = "some"
	Every              = "every"
	None               = "none"
	Is                 = "is"
)

// Operator is an immutable filter predicate kind.
type Operator struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
}

// ValueKind returns the value shape an operator of this category expects.
func (o Operator) ValueKind() Kind {
	return kindForCategory(o.Category)
}

var catalogue = []Operator{
	{Equals, CategoryEquality},
	{NotEquals, CategoryEquality},

	{In, CategoryArray},
	{NotIn, CategoryArray},

	{Contains, CategoryText},
	{NotContains, CategoryText},
	{StartsWith, CategoryText},
	{NotStartsWith, CategoryText},
	{EndsWith, CategoryText},
	{NotEndsWith, CategoryText},

	{LessThan, CategoryComparison},
	{LessThanOrEqual, CategoryComparison},
	{GreaterThan, CategoryComparison},
	{GreaterThanOrEqual, CategoryComparison},

	{Between, CategoryRange},

	{IsEmpty, CategoryEmpty},
	{IsNotEmpty, CategoryEmpty},

	{Some, CategoryRelation},
	{Every, CategoryRelation},
	{None, CategoryRelation},
	{Is, CategoryRelation},
}

var byID = func() map[string]Operator {
	m := make(map[string]Operator, len(catalogue))
	for _, op := range catalogue {
		m[op.ID] = op
	}
	return m
}()

// Lookup resolves an operator by id.
func Lookup(id string) (Operator, bool) {
	op, ok := byID[id]
	return op, ok
}

// CategoryOf returns the category of the operator, or "" when unknown.
func CategoryOf(id string) Category {
	return byID[id].Category
}

// IsEmptyOperator reports whether the operator ignores its value.
func IsEmptyOperator(id string) bool { return CategoryOf(id) == CategoryEmpty }

// IsArrayOperator reports whether the operator expects a list value.
func IsArrayOperator(id string) bool { return CategoryOf(id) == CategoryArray }

// IsRangeOperator reports whether the operator expects a (low, high) pair.
func IsRangeOperator(id string) bool { return CategoryOf(id) == CategoryRange }

// All returns the full catalogue in declaration order.
func All() []Operator {
	out := make([]Operator, len(catalogue))
	copy(out, catalogue)
	return out
}

// InCategory returns the operator ids of the given categories, in catalogue order.
func InCategory(cats ...Category) []string {
	want := make(map[Category]bool, len(cats))
	for _, c := range cats {
		want[c] = true
	}
	var ids []string
	for _, op := range catalogue {
		if want[op.Category] {
			ids = append(ids, op.ID)
		}
	}
	return ids
}

// IDs returns all operator ids sorted alphabetically.
func IDs() []string {
	ids := make([]string, 0, len(catalogue))
	for _, op := range catalogue {
		ids = append(ids, op.ID)
	}
	sort.Strings(ids)
	return ids
}

// DefaultValue returns the initial value a new clause should carry for the
// operator, given the property type's default.
func DefaultValue(typeDefault any, operator string) Value {
	switch CategoryOf(operator) {
	case CategoryEmpty:
		return NoValue()
	case CategoryArray, CategoryRelation:
		return List()
	case CategoryRange:
		return Range(nil, nil)
	default:
		return Scalar(typeDefault)
	}
}
