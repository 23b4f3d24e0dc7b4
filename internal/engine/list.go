package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"metadesk-backend/internal/filter"
	"metadesk-backend/internal/metadata"
	"metadesk-backend/internal/query"
	"metadesk-backend/internal/urlquery"
	"metadesk-backend/internal/views"
)

// activeView returns the view a list request renders, with the caller's
// persisted override merged in.
func (h *Handler) activeView(c *fiber.Ctx, entity *metadata.ResolvedEntity, requested string) (string, metadata.View, error) {
	name, view := entity.ActiveView(requested)
	overrides, err := h.views.Load(c.UserContext(), organization(c), entity.Name)
	if err != nil {
		return "", metadata.View{}, fmt.Errorf("load view overrides: %w", err)
	}
	if o, ok := overrides[name]; ok {
		view = metadata.MergeView(view, o)
	}
	return name, view, nil
}

// listState decodes the list screen state of a request. Defaults come from
// the active view; references to unknown properties are dropped so stale
// URLs keep working.
func (h *Handler) listState(c *fiber.Ctx, entity *metadata.ResolvedEntity) (urlquery.State, urlquery.State, error) {
	_, view, err := h.activeView(c, entity, c.Query(urlquery.KeyView))
	if err != nil {
		return urlquery.State{}, urlquery.State{}, err
	}
	defaults := urlquery.Defaults(entity.Display.View, view, h.opts.DefaultSize)
	state := urlquery.Decode(string(c.Request().URI().QueryString()), defaults)
	return sanitize(entity, state), defaults, nil
}

func sanitize(entity *metadata.ResolvedEntity, s urlquery.State) urlquery.State {
	known := func(key string) bool {
		if _, ok := entity.Property(key); ok {
			return true
		}
		_, ok := entity.Relation(key)
		return ok
	}

	sort := make([]query.SortItem, 0, len(s.Sort))
	for _, item := range s.Sort {
		if p, ok := entity.Property(item.Property); ok && p.Sortable {
			sort = append(sort, item)
		}
	}
	clauses := make([]filter.Clause, 0, len(s.Filter))
	for _, clause := range s.Filter {
		if filterable(entity, clause) {
			clauses = append(clauses, clause)
		}
	}
	props := make([]string, 0, len(s.Properties))
	for _, key := range s.Properties {
		if known(key) {
			props = append(props, key)
		}
	}

	s.Sort, s.Filter, s.Properties = sort, clauses, props
	return s
}

// filterable reports whether a clause can reach the store: the operator
// must be one the property's type offers and every operand a plain value.
// Relation names accept relation operators over record ids.
func filterable(entity *metadata.ResolvedEntity, clause filter.Clause) bool {
	if p, ok := entity.Property(clause.Property); ok {
		if !p.Filterable || p.PropertyType == nil || !p.PropertyType.AllowsOperator(clause.Operator) {
			return false
		}
		return scalarOperands(clause.Value)
	}
	if _, ok := entity.Relation(clause.Property); ok {
		return filter.CategoryOf(clause.Operator) == filter.CategoryRelation && scalarOperands(clause.Value)
	}
	return false
}

func scalarOperands(v filter.Value) bool {
	switch v.Kind() {
	case filter.KindScalar:
		x, _ := v.Scalar()
		return isScalar(x)
	case filter.KindList:
		items, _ := v.List()
		for _, x := range items {
			if !isScalar(x) {
				return false
			}
		}
	case filter.KindRange:
		low, high, _ := v.Bounds()
		return isScalar(low) && isScalar(high)
	}
	return true
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, float32, int, int64, json.Number:
		return true
	}
	return false
}

func encodeState(s, defaults urlquery.State) string {
	return urlquery.Encode(s, defaults).Encode()
}

// Meta handles GET /api/_meta/:entity: the resolved entity with the
// caller's view overrides applied, plus the labelled operator catalogue.
func (h *Handler) Meta(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	overrides, err := h.views.Load(c.UserContext(), organization(c), entity.Name)
	if err != nil {
		return fmt.Errorf("load view overrides: %w", err)
	}

	resolved := *entity
	resolved.Views = views.Apply(entity, overrides)
	return c.JSON(fiber.Map{
		"data": resolved,
		"meta": fiber.Map{
			"locale":       entity.Locale,
			"path":         entity.Path(),
			"searchFields": entity.SearchFields(),
			"operators":    h.registry.Operators(entity.Locale),
		},
	})
}

// Entities handles GET /api/_meta: every entity with its label and route.
func (h *Handler) Entities(c *fiber.Ctx) error {
	locale := h.locale(c)
	out := make([]fiber.Map, 0, len(h.registry.Names()))
	for _, name := range h.registry.Names() {
		e, err := h.registry.Entity(name, locale)
		if err != nil {
			return err
		}
		out = append(out, fiber.Map{"name": e.Name, "label": e.Label, "path": e.Path()})
	}
	return c.JSON(fiber.Map{"data": out})
}

// GetView handles GET /api/_views/:entity/:view
func (h *Handler) GetView(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	requested := c.Params("view")
	if _, ok := entity.Views[requested]; !ok {
		return NewAppError("NOT_FOUND", 404, fmt.Sprintf("%s has no view %s", entity.Name, requested))
	}
	name, view, err := h.activeView(c, entity, requested)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view, "meta": fiber.Map{"view": name}})
}

// SaveView handles PUT /api/_views/:entity/:view. Only type, properties and
// pinned columns are persisted.
func (h *Handler) SaveView(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	name := c.Params("view")
	if _, ok := entity.Views[name]; !ok {
		return NewAppError("NOT_FOUND", 404, fmt.Sprintf("%s has no view %s", entity.Name, name))
	}

	var o metadata.ViewOverride
	if err := c.BodyParser(&o); err != nil {
		return InvalidPayloadError("Invalid JSON body")
	}
	var details []ErrorDetail
	check := func(field string, keys []string) {
		for _, k := range keys {
			if _, ok := entity.Property(k); !ok {
				details = append(details, ErrorDetail{Field: field, Message: "unknown property " + k})
			}
		}
	}
	check("properties", o.Properties)
	if o.UI != nil && o.UI.Pinned != nil {
		check("ui.pinned.left", o.UI.Pinned.Left)
		check("ui.pinned.right", o.UI.Pinned.Right)
	}
	if len(details) > 0 {
		return &AppError{Code: "INVALID_PAYLOAD", Status: 400, Message: "Invalid view override", Details: details}
	}

	if err := h.views.Save(c.UserContext(), organization(c), entity.Name, name, o); err != nil {
		return fmt.Errorf("save view override: %w", err)
	}
	_, view, err := h.activeView(c, entity, name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view, "meta": fiber.Map{"view": name}})
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
