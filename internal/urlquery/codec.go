// Package urlquery maps list screen state to and from a flat query string.
// Values equal to their defaults are left out so URLs stay minimal, and
// anything malformed decodes to the default rather than failing.
package urlquery

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"metadesk-backend/internal/filter"
	"metadesk-backend/internal/metadata"
	"metadesk-backend/internal/query"
)

// Query string keys.
const (
	KeyPage        = "page"
	KeySize        = "size"
	KeySort        = "sort"
	KeySearch      = "search"
	KeyFilter      = "filter"
	KeyProperties  = "properties"
	KeyView        = "view"
	KeyType        = "type"
	KeyPinned      = "pinned"
	KeyPinnedRight = "pinnedRight"
)

// State is everything a list screen keeps in its URL: the query descriptor
// plus the presentation of the active view.
type State struct {
	query.Descriptor
	View   string          `json:"view"`
	Type   string          `json:"type"`
	Pinned metadata.Pinned `json:"pinned"`
}

// Defaults derives the state a list screen starts from. displayView is the
// entity's configured view name; v is the active view with any persisted
// override already merged in.
func Defaults(displayView string, v metadata.View, size int) State {
	if displayView == "" {
		displayView = metadata.DefaultView
	}
	typ := v.Type
	if typ == "" {
		typ = "table"
	}
	d := query.NewDescriptor(size)
	if v.Properties != nil {
		d.Properties = append([]string{}, v.Properties...)
	}
	if v.Query.Sort != nil {
		d.Sort = append([]query.SortItem{}, v.Query.Sort...)
	}
	if v.Query.Filter != nil {
		d.Filter = append([]filter.Clause{}, v.Query.Filter...)
	}
	return State{
		Descriptor: d,
		View:       displayView,
		Type:       typ,
		Pinned: metadata.Pinned{
			Left:  orEmpty(v.UI.Pinned.Left),
			Right: orEmpty(v.UI.Pinned.Right),
		},
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}

// Decode parses a raw query string and layers recognized keys over
// defaults. Keys that fail to parse are treated as absent.
func Decode(rawQuery string, defaults State) State {
	values, _ := url.ParseQuery(rawQuery)
	s := defaults

	if n, ok := parsePositive(values, KeyPage); ok {
		s.Page = n
	}
	if n, ok := parsePositive(values, KeySize); ok {
		s.Size = n
	}
	if raw, ok := first(values, KeySort); ok {
		if items, ok := parseSort(raw); ok {
			s.Sort = items
		}
	}
	if raw, ok := first(values, KeySearch); ok {
		s.Search = raw
	}
	if raw, ok := first(values, KeyProperties); ok {
		s.Properties = splitList(raw)
	}
	if raw, ok := first(values, KeyView); ok && raw != "" {
		s.View = raw
	}
	if raw, ok := first(values, KeyType); ok && raw != "" {
		s.Type = raw
	}
	if raw, ok := first(values, KeyPinned); ok {
		s.Pinned.Left = splitList(raw)
	}
	if raw, ok := first(values, KeyPinnedRight); ok {
		s.Pinned.Right = splitList(raw)
	}

	if raw, ok := first(values, KeyFilter); ok {
		if clauses, ok := parseFilterJSON(raw); ok {
			s.Filter = clauses
			return s
		}
	}
	if clauses, ok := parseFilterKeys(rawQuery); ok {
		s.Filter = clauses
	}
	return s
}

// Encode serializes state, omitting every key whose value equals the
// corresponding default.
func Encode(s, defaults State) url.Values {
	out := url.Values{}
	if s.Page != defaults.Page {
		out.Set(KeyPage, strconv.Itoa(max(s.Page, 1)))
	}
	if s.Size != defaults.Size {
		out.Set(KeySize, strconv.Itoa(max(s.Size, 1)))
	}
	if !sortEqual(s.Sort, defaults.Sort) {
		out.Set(KeySort, formatSort(s.Sort))
	}
	if s.Search != defaults.Search {
		out.Set(KeySearch, s.Search)
	}
	if !stringsEqual(s.Properties, defaults.Properties) {
		out.Set(KeyProperties, strings.Join(s.Properties, ","))
	}
	if s.View != defaults.View {
		out.Set(KeyView, s.View)
	}
	if s.Type != defaults.Type {
		out.Set(KeyType, s.Type)
	}
	if !stringsEqual(s.Pinned.Left, defaults.Pinned.Left) {
		out.Set(KeyPinned, strings.Join(s.Pinned.Left, ","))
	}
	if !stringsEqual(s.Pinned.Right, defaults.Pinned.Right) {
		out.Set(KeyPinnedRight, strings.Join(s.Pinned.Right, ","))
	}
	if !filterEqual(s.Filter, defaults.Filter) {
		if data, err := json.Marshal(nonNil(s.Filter)); err == nil {
			out.Set(KeyFilter, string(data))
		}
	}
	return out
}

func first(values url.Values, key string) (string, bool) {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// parsePositive reads an integer, clamping it to at least 1.
func parsePositive(values url.Values, key string) (int, bool) {
	raw, ok := first(values, key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return max(n, 1), true
}

// parseSort reads "name:asc,taxId:desc". One malformed item rejects the
// whole key.
func parseSort(raw string) ([]query.SortItem, bool) {
	items := []query.SortItem{}
	if raw == "" {
		return items, true
	}
	for _, part := range strings.Split(raw, ",") {
		property, direction, _ := strings.Cut(part, ":")
		if property == "" || !query.ValidDirection(direction) {
			return nil, false
		}
		items = append(items, query.SortItem{Property: property, Direction: direction})
	}
	return items, true
}

func formatSort(items []query.SortItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.Property + ":" + item.Direction
	}
	return strings.Join(parts, ",")
}

func splitList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFilterJSON(raw string) ([]filter.Clause, bool) {
	var clauses []filter.Clause
	if err := json.Unmarshal([]byte(raw), &clauses); err != nil {
		return nil, false
	}
	return nonNil(clauses), true
}

// parseFilterKeys reads the compact per-clause form
// filter[property$operator]=value, in query string order.
func parseFilterKeys(rawQuery string) ([]filter.Clause, bool) {
	var clauses []filter.Clause
	for _, pair := range strings.Split(rawQuery, "&") {
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil || !strings.HasPrefix(key, KeyFilter+"[") || !strings.HasSuffix(key, "]") {
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			continue
		}
		inner := key[len(KeyFilter)+1 : len(key)-1]
		property, operator, ok := strings.Cut(inner, "$")
		if !ok || property == "" {
			continue
		}
		if _, known := filter.Lookup(operator); !known {
			continue
		}
		clauses = append(clauses, filter.Clause{
			Property: property,
			Operator: operator,
			Value:    parseOperand(operator, value),
		})
	}
	return clauses, len(clauses) > 0
}

// parseOperand shapes a compact filter value by operator category: lists
// and ranges are comma separated, text stays a string, other scalars are
// read as JSON when they parse (numbers, booleans) and as strings otherwise.
func parseOperand(operator, raw string) filter.Value {
	op, _ := filter.Lookup(operator)
	switch op.ValueKind() {
	case filter.KindNone:
		return filter.NoValue()
	case filter.KindList:
		items := splitList(raw)
		vs := make([]any, len(items))
		for i, item := range items {
			vs[i] = scalar(item)
		}
		return filter.List(vs...)
	case filter.KindRange:
		low, high, _ := strings.Cut(raw, ",")
		return filter.Range(optionalScalar(low), optionalScalar(high))
	}
	if op.Category == filter.CategoryText {
		return filter.Scalar(raw)
	}
	return filter.Scalar(scalar(raw))
}

func scalar(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		switch v.(type) {
		case float64, bool:
			return v
		}
	}
	return raw
}

func optionalScalar(raw string) any {
	if raw == "" {
		return nil
	}
	return scalar(raw)
}

func nonNil(c []filter.Clause) []filter.Clause {
	if c == nil {
		return []filter.Clause{}
	}
	return c
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortEqual(a, b []query.SortItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func filterEqual(a, b []filter.Clause) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Property != b[i].Property || a[i].Operator != b[i].Operator || !a[i].Value.Equal(b[i].Value) {
			return false
		}
	}
	return true
}
