package query

import "metadesk-backend/internal/filter"

// predicate builds the condition for one operator, or nil when the value
// does not fit.
type predicate func(field string, v filter.Value, insensitive bool) Condition

var predicates = map[string]predicate{
	filter.Equals:    scalarOp("equals"),
	filter.NotEquals: scalarOp("not"),

	filter.In:    listOp("in"),
	filter.NotIn: listOp("notIn"),

	filter.Contains:      textOp("contains", false),
	filter.NotContains:   textOp("contains", true),
	filter.StartsWith:    textOp("startsWith", false),
	filter.NotStartsWith: textOp("startsWith", true),
	filter.EndsWith:      textOp("endsWith", false),
	filter.NotEndsWith:   textOp("endsWith", true),

	filter.LessThan:           scalarOp("lt"),
	filter.LessThanOrEqual:    scalarOp("lte"),
	filter.GreaterThan:        scalarOp("gt"),
	filter.GreaterThanOrEqual: scalarOp("gte"),

	filter.Between: between,

	filter.IsEmpty:    isEmpty,
	filter.IsNotEmpty: isNotEmpty,

	filter.Some:  relationOp("some"),
	filter.Every: relationOp("every"),
	filter.None:  relationOp("none"),
	filter.Is:    relationOp("is"),
}

func scalarOp(key string) predicate {
	return func(field string, v filter.Value, _ bool) Condition {
		s, ok := v.Scalar()
		if !ok {
			return nil
		}
		return Condition{field: map[string]any{key: s}}
	}
}

func listOp(key string) predicate {
	return func(field string, v filter.Value, _ bool) Condition {
		items, ok := v.List()
		if !ok {
			return nil
		}
		return Condition{field: map[string]any{key: items}}
	}
}

func textOp(key string, negate bool) predicate {
	return func(field string, v filter.Value, insensitive bool) Condition {
		s, ok := v.Scalar()
		if !ok {
			return nil
		}
		op := map[string]any{key: s}
		if insensitive {
			op["mode"] = "insensitive"
		}
		if negate {
			return Condition{field: map[string]any{"not": op}}
		}
		return Condition{field: op}
	}
}

func between(field string, v filter.Value, _ bool) Condition {
	low, high, ok := v.Bounds()
	if !ok {
		return nil
	}
	op := make(map[string]any, 2)
	if !blankOperand(low) {
		op["gte"] = low
	}
	if !blankOperand(high) {
		op["lte"] = high
	}
	if len(op) == 0 {
		return nil
	}
	return Condition{field: op}
}

func isEmpty(field string, _ filter.Value, _ bool) Condition {
	return Condition{field: map[string]any{"equals": nil}}
}

func isNotEmpty(field string, _ filter.Value, _ bool) Condition {
	return Condition{field: map[string]any{"not": nil}}
}

// relationOp filters a relation by the ids of related records.
func relationOp(key string) predicate {
	return func(field string, v filter.Value, _ bool) Condition {
		ids, ok := v.List()
		if !ok {
			return nil
		}
		return Condition{field: map[string]any{
			key: map[string]any{"id": map[string]any{"in": ids}},
		}}
	}
}

func blankOperand(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
