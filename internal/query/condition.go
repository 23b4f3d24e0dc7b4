package query

// Condition is a backend-native where condition: field keys map to operator
// objects, logical keys (AND, OR, NOT) map to nested conditions.
//
//	{"name": {"contains": "acme"}}
//	{"AND": []Condition{...}}
type Condition map[string]any

// Logical operator keys.
const (
	And = "AND"
	Or  = "OR"
	Not = "NOT"
)

// IsLogical reports whether key is a structural logical operator rather
// than a field reference.
func IsLogical(key string) bool {
	return key == And || key == Or || key == Not
}

// MergeConditions drops nil/empty entries and combines the rest with AND.
// Zero conditions yield nil, exactly one is returned unwrapped.
func MergeConditions(conditions ...Condition) Condition {
	valid := make([]Condition, 0, len(conditions))
	for _, c := range conditions {
		if len(c) == 0 {
			continue
		}
		valid = append(valid, c)
	}
	return and(valid)
}

func and(conditions []Condition) Condition {
	switch len(conditions) {
	case 0:
		return nil
	case 1:
		return conditions[0]
	default:
		return Condition{And: conditions}
	}
}

// Selection is a backend projection: {field: true} or
// {relation: {select: {field: true}}}.
type Selection map[string]any

// OrderBy is one sort key: property -> "asc" | "desc", or relation ->
// nested OrderBy.
type OrderBy map[string]any

// BackendQuery is the compiled, backend-native query shape. It is also the
// argument of a model client's find operation, where Take 0 means no
// limit.
type BackendQuery struct {
	Skip    int       `json:"skip"`
	Take    int       `json:"take"`
	OrderBy []OrderBy `json:"orderBy"`
	Where   Condition `json:"where,omitempty"`
	Select  Selection `json:"select,omitempty"`
}

// AggregateFields names the fields an aggregate applies to.
type AggregateFields map[string]bool

// AggregateQuery summarizes every record matching Where. Total requests the
// record count as a bare number under "_count"; CountAll requests it as
// "_count._all" next to the per-field non-null counts of Count.
type AggregateQuery struct {
	Where    Condition       `json:"where,omitempty"`
	Total    bool            `json:"-"`
	CountAll bool            `json:"-"`
	Count    AggregateFields `json:"_count,omitempty"`
	Sum      AggregateFields `json:"_sum,omitempty"`
	Avg      AggregateFields `json:"_avg,omitempty"`
	Min      AggregateFields `json:"_min,omitempty"`
	Max      AggregateFields `json:"_max,omitempty"`
}

// Empty reports whether no aggregate was requested.
func (a AggregateQuery) Empty() bool {
	return !a.Total && !a.CountAll && len(a.Count) == 0 && len(a.Sum) == 0 && len(a.Avg) == 0 && len(a.Min) == 0 && len(a.Max) == 0
}
