package filter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Clause is a single declarative filter: property, operator, operand.
type Clause struct {
	Property string `json:"property"`
	Operator string `json:"operator"`
	Value    Value  `json:"value"`
}

// Compatible reports whether the clause's value shape matches what its
// operator expects. Clauses with unknown operators are never compatible.
func (c Clause) Compatible() bool {
	op, ok := Lookup(c.Operator)
	if !ok {
		return false
	}
	want := op.ValueKind()
	if want == KindNone {
		return true
	}
	return c.Value.Kind() == want
}

// Active reports whether the clause contributes a condition: the operator
// is known, the value fits, and the value is non-empty unless the operator
// is in the empty category.
func (c Clause) Active() bool {
	if !c.Compatible() {
		return false
	}
	if IsEmptyOperator(c.Operator) {
		return true
	}
	return !c.Value.IsEmpty()
}

type rawClause struct {
	Property string          `json:"property"`
	Operator string          `json:"operator"`
	Value    json.RawMessage `json:"value"`
}

func (c *Clause) UnmarshalJSON(data []byte) error {
	var raw rawClause
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := DecodeValue(raw.Operator, raw.Value)
	if err != nil {
		return err
	}
	*c = Clause{Property: raw.Property, Operator: raw.Operator, Value: v}
	return nil
}

func (c Clause) MarshalJSON() ([]byte, error) {
	if IsEmptyOperator(c.Operator) {
		return json.Marshal(struct {
			Property string `json:"property"`
			Operator string `json:"operator"`
		}{c.Property, c.Operator})
	}
	return json.Marshal(struct {
		Property string `json:"property"`
		Operator string `json:"operator"`
		Value    Value  `json:"value"`
	}{c.Property, c.Operator, c.Value})
}

// Format renders a clause as a short human-readable chip, e.g. "Name: acme".
// field is usually the property's localized label.
func Format(operator, field string, v Value) string {
	val := formatOperand(v)
	switch operator {
	case Equals:
		return fmt.Sprintf("%s = %s", field, val)
	case NotEquals:
		return fmt.Sprintf("%s ≠ %s", field, val)
	case In:
		return fmt.Sprintf("%s ∈ [%s]", field, val)
	case NotIn:
		return fmt.Sprintf("%s ∉ [%s]", field, val)
	case Contains, Some, Every, None, Is:
		return fmt.Sprintf("%s: %s", field, val)
	case NotContains:
		return fmt.Sprintf("%s: ~~%s~~", field, val)
	case StartsWith:
		return fmt.Sprintf("%s: %s…", field, val)
	case NotStartsWith:
		return fmt.Sprintf("%s: ~~%s~~…", field, val)
	case EndsWith:
		return fmt.Sprintf("%s: …%s", field, val)
	case NotEndsWith:
		return fmt.Sprintf("%s: …~~%s~~", field, val)
	case LessThan:
		return fmt.Sprintf("%s < %s", field, val)
	case LessThanOrEqual:
		return fmt.Sprintf("%s ≤ %s", field, val)
	case GreaterThan:
		return fmt.Sprintf("%s > %s", field, val)
	case GreaterThanOrEqual:
		return fmt.Sprintf("%s ≥ %s", field, val)
	case Between:
		return formatBetween(field, v)
	case IsEmpty:
		return field + " ∅"
	case IsNotEmpty:
		return field + " ≠ ∅"
	default:
		return fmt.Sprintf("%s %s %s", field, operator, val)
	}
}

func formatBetween(field string, v Value) string {
	low, high, _ := v.Bounds()
	switch {
	case blank(low) && blank(high):
		return field
	case !blank(low) && !blank(high):
		return fmt.Sprintf("%s: %v – %v", field, low, high)
	case !blank(low):
		return fmt.Sprintf("%s ≥ %v", field, low)
	default:
		return fmt.Sprintf("%s ≤ %v", field, high)
	}
}

func formatOperand(v Value) string {
	switch v.Kind() {
	case KindScalar:
		s, _ := v.Scalar()
		if s == nil {
			return ""
		}
		return fmt.Sprint(s)
	case KindList:
		items, _ := v.List()
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	case KindRange:
		low, high, _ := v.Bounds()
		return fmt.Sprintf("%v, %v", low, high)
	default:
		return ""
	}
}
