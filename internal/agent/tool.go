// Package agent exposes entity listing to an autonomous caller. Requests
// are schema checked, restricted to the registry's entities and fields, and
// answered with an Envelope instead of a Go error.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"metadesk-backend/internal/metadata"
	"metadesk-backend/internal/query"
)

const (
	DefaultMaxTake     = 200
	DefaultDefaultTake = 50

	rawExpressionKey = "$expr"
	queryErrorHint   = "Review where/orderBy/select/pagination and try again."
)

// ModelClient is the part of a model client the tool needs.
type ModelClient interface {
	FindMany(ctx context.Context, q query.BackendQuery) ([]map[string]any, error)
	Aggregate(ctx context.Context, q query.AggregateQuery) (map[string]any, error)
}

// Models resolves a model client per entity.
type Models interface {
	Client(entity string) (ModelClient, error)
}

// ModelsFunc adapts a function to Models.
type ModelsFunc func(entity string) (ModelClient, error)

func (f ModelsFunc) Client(entity string) (ModelClient, error) { return f(entity) }

// Tool is the sandboxed list tool.
type Tool struct {
	registry        *metadata.Registry
	models          Models
	schema          *schema
	locale          string
	maxTake         int
	defaultTake     int
	caseInsensitive bool
	logger          *zap.Logger
	now             func() time.Time
}

type Option func(*Tool)

// WithLimits sets the maximum and default page size.
func WithLimits(maxTake, defaultTake int) Option {
	return func(t *Tool) {
		if maxTake > 0 {
			t.maxTake = maxTake
		}
		if defaultTake > 0 {
			t.defaultTake = defaultTake
		}
	}
}

// WithLocale sets the locale used for entity and property labels.
func WithLocale(locale string) Option {
	return func(t *Tool) { t.locale = locale }
}

// WithCaseInsensitiveSearch only changes the description text: it tells the
// agent that text operators accept mode "insensitive". Where conditions are
// passed through as given, so matching stays case-sensitive unless the agent
// asks for that mode itself.
func WithCaseInsensitiveSearch(on bool) Option {
	return func(t *Tool) { t.caseInsensitive = on }
}

func WithLogger(l *zap.Logger) Option {
	return func(t *Tool) { t.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tool) { t.now = now }
}

// New builds a tool over a registry and its model clients.
func New(reg *metadata.Registry, models Models, opts ...Option) (*Tool, error) {
	t := &Tool{
		registry:    reg,
		models:      models,
		maxTake:     DefaultMaxTake,
		defaultTake: DefaultDefaultTake,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	if t.defaultTake > t.maxTake {
		t.defaultTake = t.maxTake
	}
	s, err := compileSchema(t.maxTake)
	if err != nil {
		return nil, err
	}
	t.schema = s
	return t, nil
}

// Request is the decoded tool input.
type Request struct {
	Model   string          `json:"model"`
	Where   map[string]any  `json:"where,omitempty"`
	OrderBy json.RawMessage `json:"orderBy,omitempty"`
	Select  map[string]any  `json:"select,omitempty"`
	Take    *int            `json:"take,omitempty"`
	Skip    *int            `json:"skip,omitempty"`
	Count   any             `json:"_count,omitempty"`
	Sum     map[string]bool `json:"_sum,omitempty"`
	Avg     map[string]bool `json:"_avg,omitempty"`
	Min     map[string]bool `json:"_min,omitempty"`
	Max     map[string]bool `json:"_max,omitempty"`
}

func (r *Request) wantsAggregate() bool {
	return r.Count != nil || len(r.Sum) > 0 || len(r.Avg) > 0 || len(r.Min) > 0 || len(r.Max) > 0
}

// Execute runs one list request. It never returns an error; every failure
// is reported in the envelope.
func (t *Tool) Execute(ctx context.Context, raw json.RawMessage) Envelope {
	started := t.now()
	env := t.execute(ctx, raw, started)
	t.logger.Debug("agent list",
		zap.String("entity", modelName(raw)),
		zap.String("code", env.Code()),
		zap.Int64("timing_ms", t.now().Sub(started).Milliseconds()),
	)
	return env
}

func (t *Tool) execute(ctx context.Context, raw json.RawMessage, started time.Time) Envelope {
	requestedAt := started.UTC().Format(time.RFC3339Nano)

	if err := t.schema.validate(raw); err != nil {
		return failure(CodeInvalidInput, err.Error(), "Send an object with model and optional where, orderBy, select, take, skip and aggregates.")
	}
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return failure(CodeInvalidInput, fmt.Sprintf("decode input: %v", err), "")
	}

	name, ok := t.registry.ResolveName(req.Model)
	if !ok {
		return failure(CodeModelNotFound,
			fmt.Sprintf("Entity %q was not found in the registry.", req.Model),
			"Available entities: "+strings.Join(t.registry.Names(), ", "))
	}
	entity, err := t.registry.Entity(name, t.locale)
	if err != nil {
		return failure(CodeModelNotFound, err.Error(), "Available entities: "+strings.Join(t.registry.Names(), ", "))
	}

	allowed := entity.AllowedKeys()
	allowedSet := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		allowedSet[k] = true
	}
	allowedHint := "Allowed keys: " + strings.Join(allowed, ", ")

	if invalid := invalidKeys(req.Select, allowedSet); len(invalid) > 0 {
		return failure(CodeInvalidSelect, "select: invalid keys: "+strings.Join(invalid, ", ")+".", allowedHint)
	}

	if req.Where != nil {
		if containsRawExpression(req.Where) {
			return failure(CodeInvalidWhere, "where: $expr is not allowed.", "Remove $expr from where.")
		}
		if invalid := invalidWhereKeys(req.Where, allowedSet); len(invalid) > 0 {
			return failure(CodeInvalidWhere, "where: invalid keys: "+strings.Join(invalid, ", ")+".", allowedHint)
		}
	}

	orderBy, err := decodeOrderBy(req.OrderBy)
	if err != nil {
		return failure(CodeInvalidOrderBy, "orderBy: "+err.Error(), "Use { field: \"asc\" | \"desc\" }.")
	}
	var orderKeys []string
	for _, o := range orderBy {
		for k := range o {
			orderKeys = append(orderKeys, k)
		}
	}
	if invalid := invalidNames(orderKeys, allowedSet); len(invalid) > 0 {
		return failure(CodeInvalidOrderBy, "orderBy: invalid keys: "+strings.Join(invalid, ", ")+".", allowedHint)
	}

	take := t.defaultTake
	if req.Take != nil {
		take = *req.Take
	}
	take = min(take, t.maxTake)

	find := query.BackendQuery{
		Take:    take,
		OrderBy: orderBy,
		Where:   query.Condition(req.Where),
		Select:  toSelection(req.Select),
	}
	if req.Skip != nil {
		find.Skip = *req.Skip
	}

	var agg query.AggregateQuery
	wantsAggregate := req.wantsAggregate()
	if wantsAggregate {
		agg = aggregateQuery(&req)
	}

	client, err := t.models.Client(name)
	if err != nil {
		return failure(CodeQueryError, err.Error(), queryErrorHint)
	}

	var (
		data      []map[string]any
		aggregate map[string]any
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := client.FindMany(gctx, find)
		data = rows
		return err
	})
	if wantsAggregate {
		g.Go(func() error {
			res, err := client.Aggregate(gctx, agg)
			aggregate = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Failed to execute query."
		}
		return failure(CodeQueryError, msg, queryErrorHint)
	}

	if data == nil {
		data = []map[string]any{}
	}
	meta := &Meta{
		Model:       name,
		Label:       entity.Label,
		Properties:  propertyLabels(entity, req.Select),
		Pagination:  Pagination{Skip: req.Skip, Take: take},
		TimingMs:    t.now().Sub(started).Milliseconds(),
		RequestedAt: requestedAt,
	}
	if wantsAggregate {
		meta.Aggregate = pickAggregates(aggregate)
	}
	return Envelope{Status: StatusSuccess, Meta: meta, Data: data}
}

func modelName(raw json.RawMessage) string {
	var probe struct {
		Model string `json:"model"`
	}
	_ = json.Unmarshal(raw, &probe)
	return probe.Model
}

func invalidKeys(m map[string]any, allowed map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return invalidNames(keys, allowed)
}

func invalidNames(keys []string, allowed map[string]bool) []string {
	var invalid []string
	seen := map[string]bool{}
	for _, k := range keys {
		if !allowed[k] && !seen[k] {
			invalid = append(invalid, k)
			seen[k] = true
		}
	}
	sort.Strings(invalid)
	return invalid
}

// invalidWhereKeys checks field keys at the top level and inside AND/OR/NOT
// groups, which are structural and exempt themselves.
func invalidWhereKeys(where map[string]any, allowed map[string]bool) []string {
	var keys []string
	var walk func(m map[string]any)
	walk = func(m map[string]any) {
		for k, v := range m {
			if !query.IsLogical(k) {
				keys = append(keys, k)
				continue
			}
			switch nested := v.(type) {
			case map[string]any:
				walk(nested)
			case []any:
				for _, item := range nested {
					if sub, ok := item.(map[string]any); ok {
						walk(sub)
					}
				}
			}
		}
	}
	walk(where)
	return invalidNames(keys, allowed)
}

// containsRawExpression reports whether $expr appears anywhere in v.
func containsRawExpression(v any) bool {
	switch val := v.(type) {
	case map[string]any:
		for k, nested := range val {
			if k == rawExpressionKey || containsRawExpression(nested) {
				return true
			}
		}
	case []any:
		for _, item := range val {
			if containsRawExpression(item) {
				return true
			}
		}
	}
	return false
}

// decodeOrderBy accepts an object or a list of objects. Keys of an object
// keep their written order.
func decodeOrderBy(raw json.RawMessage) ([]query.OrderBy, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		var out []query.OrderBy
		for _, item := range items {
			entries, err := orderedObject(item)
			if err != nil {
				return nil, err
			}
			out = append(out, entries...)
		}
		return out, nil
	}
	return orderedObject(raw)
}

// orderedObject splits {"a": "asc", "b": {"c": "desc"}} into one OrderBy
// per key, in document order.
func orderedObject(raw json.RawMessage) ([]query.OrderBy, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected an object")
	}
	var out []query.OrderBy
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		out = append(out, query.OrderBy{key: value})
	}
	return out, nil
}

// toSelection converts decoded JSON into nested Selections.
func toSelection(m map[string]any) query.Selection {
	if m == nil {
		return nil
	}
	out := make(query.Selection, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = toSelection(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func aggregateQuery(req *Request) query.AggregateQuery {
	agg := query.AggregateQuery{
		Where: query.Condition(req.Where),
		Sum:   req.Sum,
		Avg:   req.Avg,
		Min:   req.Min,
		Max:   req.Max,
	}
	switch c := req.Count.(type) {
	case bool:
		agg.Total = c
	case map[string]any:
		agg.Count = query.AggregateFields{}
		for k, v := range c {
			if b, ok := v.(bool); ok && b {
				if k == "_all" {
					agg.CountAll = true
					continue
				}
				agg.Count[k] = true
			}
		}
	}
	return agg
}

var aggregateKeys = []string{"_count", "_sum", "_avg", "_min", "_max"}

func pickAggregates(res map[string]any) map[string]any {
	out := map[string]any{}
	for _, k := range aggregateKeys {
		if v, ok := res[k]; ok {
			out[k] = v
		}
	}
	return out
}

// propertyLabels maps selected scalar keys, or every own property when
// nothing is selected, to their labels.
func propertyLabels(e *metadata.ResolvedEntity, sel map[string]any) map[string]string {
	out := map[string]string{}
	if sel != nil {
		for k, v := range sel {
			if b, ok := v.(bool); !ok || !b {
				continue
			}
			if p, ok := e.Property(k); ok && !p.Nested() {
				out[k] = p.Label
			}
		}
		return out
	}
	for _, k := range e.OwnPropertyKeys() {
		p, _ := e.Property(k)
		out[k] = p.Label
	}
	return out
}
