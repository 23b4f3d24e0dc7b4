package metadata

import (
	"errors"
	"fmt"
	"strings"

	"metadesk-backend/internal/filter"
)

var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrInvalidEntity  = errors.New("invalid entity definition")
)

type entityKey struct {
	name   string
	locale string
}

// Registry resolves entity definitions into localized, type-merged
// entities. Resolved entities are memoized per (entity, locale).
type Registry struct {
	defs       []*EntityDef
	byName     map[string]*EntityDef
	byLower    map[string]*EntityDef
	targets    map[string]map[string]string // entity -> relation or property -> target entity
	conditions map[string]*conditionSet
	types      *PropertyTypes
	translator Translator
	cache      *Cache[entityKey, *ResolvedEntity]
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithEntityCache injects the memo used for resolved entities.
func WithEntityCache(c *Cache[entityKey, *ResolvedEntity]) RegistryOption {
	return func(r *Registry) { r.cache = c }
}

// NewEntityCache returns an empty cache suitable for WithEntityCache.
func NewEntityCache() *Cache[entityKey, *ResolvedEntity] {
	return NewCache[entityKey, *ResolvedEntity]()
}

type nopTranslator struct{}

func (nopTranslator) Match(locale string) string              { return locale }
func (nopTranslator) Translate(string, string) (string, bool) { return "", false }

// NewRegistry validates the definitions and builds a registry. Entity names
// must be unique ignoring case, and every relation and relation property
// must point at a defined entity.
func NewRegistry(defs []EntityDef, types *PropertyTypes, tr Translator, opts ...RegistryOption) (*Registry, error) {
	if types == nil {
		types = NewBuiltinPropertyTypes()
	}
	if tr == nil {
		tr = nopTranslator{}
	}
	r := &Registry{
		byName:     make(map[string]*EntityDef, len(defs)),
		byLower:    make(map[string]*EntityDef, len(defs)),
		targets:    make(map[string]map[string]string, len(defs)),
		conditions: make(map[string]*conditionSet, len(defs)),
		types:      types,
		translator: tr,
		cache:      NewEntityCache(),
	}
	for _, o := range opts {
		o(r)
	}

	for i := range defs {
		def := defs[i]
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: entity at index %d has no name", ErrInvalidEntity, i)
		}
		lower := strings.ToLower(name)
		if _, dup := r.byLower[lower]; dup {
			return nil, fmt.Errorf("%w: duplicate entity name %q", ErrInvalidEntity, name)
		}
		def.Name = name
		r.defs = append(r.defs, &def)
		r.byName[name] = &def
		r.byLower[lower] = &def
	}

	for _, def := range r.defs {
		if err := r.link(def); err != nil {
			return nil, err
		}
		set, err := compileConditions(def)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEntity, err)
		}
		r.conditions[def.Name] = set
	}
	return r, nil
}

func (r *Registry) link(def *EntityDef) error {
	targets := map[string]string{}
	seen := map[string]bool{}
	for _, p := range def.Properties {
		if seen[p.Key] {
			return fmt.Errorf("%w: %s declares property %q twice", ErrInvalidEntity, def.Name, p.Key)
		}
		seen[p.Key] = true
		if !r.types.Resolve(p.Type).IsA("relation") {
			continue
		}
		if p.Entity == "" {
			return fmt.Errorf("%w: %s.%s is a relation without an entity", ErrInvalidEntity, def.Name, p.Key)
		}
		target, ok := r.lookup(p.Entity)
		if !ok {
			return fmt.Errorf("%w: %s.%s references unknown entity %q", ErrInvalidEntity, def.Name, p.Key, p.Entity)
		}
		targets[p.Key] = target.Name
	}

	for _, rel := range append(append([]string(nil), def.HasOne...), def.HasMany...) {
		if seen[rel] {
			return fmt.Errorf("%w: %s relation %q collides with a property", ErrInvalidEntity, def.Name, rel)
		}
		seen[rel] = true
		target, ok := r.relationTarget(rel)
		if !ok {
			return fmt.Errorf("%w: %s relation %q does not name an entity", ErrInvalidEntity, def.Name, rel)
		}
		targets[rel] = target.Name
	}

	if def.Display.Property != "" {
		if _, ok := def.Properties.Get(def.Display.Property); !ok {
			return fmt.Errorf("%w: %s display property %q is not declared", ErrInvalidEntity, def.Name, def.Display.Property)
		}
	}
	r.targets[def.Name] = targets
	return nil
}

// lookup finds a definition by exact name, then ignoring case.
func (r *Registry) lookup(name string) (*EntityDef, bool) {
	name = strings.TrimSpace(name)
	if def, ok := r.byName[name]; ok {
		return def, true
	}
	def, ok := r.byLower[strings.ToLower(name)]
	return def, ok
}

// relationTarget resolves a relation name like "locations" to its entity.
func (r *Registry) relationTarget(rel string) (*EntityDef, bool) {
	if def, ok := r.lookup(rel); ok {
		return def, true
	}
	return r.lookup(Singularize(rel))
}

// ResolveName returns the canonical name of an entity, matching exactly
// first and then ignoring case.
func (r *Registry) ResolveName(name string) (string, bool) {
	def, ok := r.lookup(name)
	if !ok {
		return "", false
	}
	return def.Name, true
}

// Names returns canonical entity names in definition order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.defs))
	for i, d := range r.defs {
		names[i] = d.Name
	}
	return names
}

// Definition returns the raw definition of an entity.
func (r *Registry) Definition(name string) (*EntityDef, bool) {
	return r.lookup(name)
}

// Definitions returns every raw definition in definition order.
func (r *Registry) Definitions() []*EntityDef {
	out := make([]*EntityDef, len(r.defs))
	copy(out, r.defs)
	return out
}

// Types returns the property type registry used for resolution.
func (r *Registry) Types() *PropertyTypes { return r.types }

// Translator returns the label source used for resolution.
func (r *Registry) Translator() Translator { return r.translator }

// Target returns the canonical entity a relation or relation property of
// entity points at.
func (r *Registry) Target(entity, key string) (string, bool) {
	def, ok := r.lookup(entity)
	if !ok {
		return "", false
	}
	target, ok := r.targets[def.Name][key]
	return target, ok
}

// Entity returns the resolved entity for a locale. Unknown names are a
// configuration error and return ErrEntityNotFound.
func (r *Registry) Entity(name, locale string) (*ResolvedEntity, error) {
	def, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntityNotFound, name)
	}
	key := entityKey{name: def.Name, locale: r.translator.Match(locale)}
	if e, ok := r.cache.Get(key); ok {
		return e, nil
	}
	return r.cache.Put(key, r.resolve(def, key.locale)), nil
}

// Invalidate drops the cached entity for one (entity, locale) pair.
func (r *Registry) Invalidate(name, locale string) {
	def, ok := r.lookup(name)
	if !ok {
		return
	}
	r.cache.Delete(entityKey{name: def.Name, locale: r.translator.Match(locale)})
}

// OperatorLabel is a filter operator with its localized label.
type OperatorLabel struct {
	ID       string          `json:"id"`
	Category filter.Category `json:"category"`
	Label    string          `json:"label"`
}

// Operators returns the operator catalogue labelled for a locale.
func (r *Registry) Operators(locale string) []OperatorLabel {
	loc := r.translator.Match(locale)
	all := filter.All()
	out := make([]OperatorLabel, len(all))
	for i, op := range all {
		out[i] = OperatorLabel{ID: op.ID, Category: op.Category, Label: r.label(loc, "operators."+op.ID, op.ID)}
	}
	return out
}

func (r *Registry) label(locale, key, fallback string) string {
	if s, ok := r.translator.Translate(locale, key); ok && s != "" {
		return s
	}
	return fallback
}

func (r *Registry) title(def *EntityDef, locale string) string {
	return r.label(locale, def.Name+".title", def.Name)
}

func (r *Registry) resolveProperty(def *EntityDef, d PropertyDef, locale string) *Property {
	pt := r.types.Resolve(d.Type)
	p := &Property{
		Key:             d.Key,
		Label:           r.label(locale, def.Name+".properties."+d.Key, d.Key),
		Type:            pt.ID,
		PropertyType:    pt,
		Icon:            pt.Icon,
		Operators:       pt.Operators,
		DefaultOperator: pt.DefaultOperator,
		DefaultValue:    pt.DefaultValue,
		Searchable:      d.Searchable,
		Sortable:        d.Sortable == nil || *d.Sortable,
		Filterable:      (d.Filterable == nil || *d.Filterable) && len(pt.Operators) > 0,
		Required:        d.Required,
		Mask:            ResolveMask(d.Mask),
		Options:         r.options(d.Options, locale),
		Entity:          r.targets[def.Name][d.Key],
	}
	p.Input = ResolveInput(p)
	p.Display = ResolveDisplay(p)
	return p
}

// options translates option labels; a label is a catalog key or literal text.
func (r *Registry) options(opts []Option, locale string) []Option {
	if len(opts) == 0 {
		return nil
	}
	out := make([]Option, len(opts))
	for i, o := range opts {
		out[i] = Option{Value: o.Value, Label: r.label(locale, o.Label, o.Label)}
	}
	return out
}

func (r *Registry) resolve(def *EntityDef, locale string) *ResolvedEntity {
	e := &ResolvedEntity{
		Name:          def.Name,
		Label:         r.title(def, locale),
		Locale:        locale,
		Slug:          Slugify(KebabCase(Pluralize(def.Name))),
		Table:         def.TableName(),
		Display:       def.Display,
		Views:         make(map[string]View, len(def.Views)),
		AIDescription: def.AIDescription,
		byKey:         make(map[string]*Property),
		conditions:    r.conditions[def.Name],
	}

	for _, d := range def.Properties {
		p := r.resolveProperty(def, d, locale)
		e.Properties = append(e.Properties, p)
		e.byKey[p.Key] = p
	}

	for _, rel := range def.HasOne {
		target := r.byName[r.targets[def.Name][rel]]
		targetTitle := r.title(target, locale)
		e.Relations = append(e.Relations, Relation{Name: rel, Entity: target.Name, Kind: HasOne, Label: r.label(locale, def.Name+".relations."+rel, targetTitle)})

		for _, d := range target.Properties {
			nested := r.resolveProperty(target, d, locale)
			key := rel + "." + d.Key
			composite := targetTitle + " / " + nested.Label
			nested.Key = key
			nested.Label = r.label(locale, def.Name+".properties."+key, composite)
			nested.Relation = rel
			nested.Searchable = false
			nested.Sortable = false
			nested.Filterable = false
			e.Properties = append(e.Properties, nested)
			e.byKey[key] = nested
		}
	}
	for _, rel := range def.HasMany {
		target := r.byName[r.targets[def.Name][rel]]
		e.Relations = append(e.Relations, Relation{Name: rel, Entity: target.Name, Kind: HasMany, Label: r.label(locale, def.Name+".relations."+rel, r.title(target, locale))})
	}

	for name, v := range def.Views {
		resolved := MergeView(v, ViewOverride{})
		resolved.Label = r.label(locale, def.Name+".views."+name, name)
		e.Views[name] = resolved
	}

	e.Actions = r.actions(def, def.Actions, locale)
	e.ItemActions = r.actions(def, def.ItemActions, locale)
	e.BatchActions = r.actions(def, def.BatchActions, locale)

	if def.Form != nil {
		form := &Form{Fieldsets: make([]Fieldset, len(def.Form.Fieldsets))}
		for i, fs := range def.Form.Fieldsets {
			fs.Label = r.label(locale, def.Name+".fieldsets."+fs.Name, fs.Name)
			form.Fieldsets[i] = fs
		}
		e.Form = form
	}
	return e
}

func (r *Registry) actions(def *EntityDef, defs ActionDefs, locale string) []Action {
	out := make([]Action, 0, len(defs))
	for _, a := range defs {
		out = append(out, Action{ActionDef: a, Label: r.label(locale, def.Name+".actions."+a.Key, a.Key)})
	}
	return out
}
