package engine

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"metadesk-backend/internal/agent"
	"metadesk-backend/internal/metadata"
	"metadesk-backend/internal/query"
	"metadesk-backend/internal/store"
	"metadesk-backend/internal/views"
)

// Options are the request-independent settings of the handlers.
type Options struct {
	DefaultSize           int
	CaseInsensitiveSearch bool
	ExportMaxRows         int
}

type Handler struct {
	registry *metadata.Registry
	models   *store.Models
	views    views.Store
	tool     *agent.Tool
	compiler query.Compiler
	opts     Options
	logger   *zap.Logger
}

// NewHandler wires the HTTP handlers. tool may be nil when the agent
// endpoint is not served.
func NewHandler(reg *metadata.Registry, models *store.Models, vs views.Store, tool *agent.Tool, opts Options, logger *zap.Logger) *Handler {
	if opts.DefaultSize < 1 {
		opts.DefaultSize = query.DefaultSize
	}
	if vs == nil {
		vs = views.NewMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry: reg,
		models:   models,
		views:    vs,
		tool:     tool,
		compiler: query.Compiler{CaseInsensitive: opts.CaseInsensitiveSearch},
		opts:     opts,
		logger:   logger,
	}
}

// List handles GET /api/:entity
func (h *Handler) List(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	state, defaults, err := h.listState(c, entity)
	if err != nil {
		return err
	}
	q := h.compiler.Compile(state.Descriptor, entity.SearchFields())

	model, err := h.models.Model(entity.Name)
	if err != nil {
		return storeError(err)
	}
	rows, err := model.FindMany(c.UserContext(), q)
	if err != nil {
		return storeError(fmt.Errorf("list %s: %w", entity.Name, err))
	}
	total, err := model.Count(c.UserContext(), q.Where)
	if err != nil {
		return storeError(fmt.Errorf("count %s: %w", entity.Name, err))
	}

	return c.JSON(fiber.Map{
		"data": withItemActions(entity, rows),
		"meta": fiber.Map{
			"page":   state.Page,
			"size":   state.Size,
			"total":  total,
			"view":   state.View,
			"type":   state.Type,
			"pinned": state.Pinned,
			"query":  encodeState(state, defaults),
		},
	})
}

// GetByID handles GET /api/:entity/:id
func (h *Handler) GetByID(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}
	model, err := h.models.Model(entity.Name)
	if err != nil {
		return storeError(err)
	}

	id := c.Params("id")
	sel := query.BuildSelect(splitList(c.Query("properties")))
	row, err := model.FindUnique(c.UserContext(), id, sel)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError(entity.Name, id)
		}
		return storeError(fmt.Errorf("get %s/%s: %w", entity.Name, id, err))
	}

	return c.JSON(fiber.Map{
		"data": row,
		"meta": fiber.Map{"itemActions": entity.VisibleItemActions(row)},
	})
}

// Create handles POST /api/:entity
func (h *Handler) Create(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return InvalidPayloadError("Invalid JSON body")
	}

	model, err := h.models.Model(entity.Name)
	if err != nil {
		return storeError(err)
	}
	record, err := model.Create(c.UserContext(), body)
	if err != nil {
		return storeError(err)
	}

	return c.Status(201).JSON(fiber.Map{"data": record})
}

// Update handles PUT /api/:entity/:id
func (h *Handler) Update(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return InvalidPayloadError("Invalid JSON body")
	}
	delete(body, "id")

	id := c.Params("id")
	model, err := h.models.Model(entity.Name)
	if err != nil {
		return storeError(err)
	}
	affected, err := model.Update(c.UserContext(), query.Condition{"id": id}, body)
	if err != nil {
		return storeError(err)
	}
	if affected == 0 {
		return NotFoundError(entity.Name, id)
	}

	record, err := model.FindUnique(c.UserContext(), id, nil)
	if err != nil {
		return storeError(fmt.Errorf("reload %s/%s: %w", entity.Name, id, err))
	}
	return c.JSON(fiber.Map{"data": record})
}

// Delete handles DELETE /api/:entity/:id
func (h *Handler) Delete(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	id := c.Params("id")
	model, err := h.models.Model(entity.Name)
	if err != nil {
		return storeError(err)
	}
	affected, err := model.Delete(c.UserContext(), query.Condition{"id": id})
	if err != nil {
		return storeError(fmt.Errorf("delete %s/%s: %w", entity.Name, id, err))
	}
	if affected == 0 {
		return NotFoundError(entity.Name, id)
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

// BatchDelete handles DELETE /api/:entity with {"ids": [...]}. Every id
// must exist; otherwise nothing is deleted.
func (h *Handler) BatchDelete(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	var body struct {
		IDs []string `json:"ids"`
	}
	if err := c.BodyParser(&body); err != nil {
		return InvalidPayloadError("Invalid JSON body")
	}
	if len(body.IDs) == 0 {
		return InvalidPayloadError("ids must be a non-empty list")
	}

	err = h.models.InTx(c.UserContext(), func(tx *store.Models) error {
		model, err := tx.Model(entity.Name)
		if err != nil {
			return err
		}
		for _, id := range body.IDs {
			affected, err := model.Delete(c.UserContext(), query.Condition{"id": id})
			if err != nil {
				return fmt.Errorf("delete %s/%s: %w", entity.Name, id, err)
			}
			if affected == 0 {
				return NotFoundError(entity.Name, id)
			}
		}
		return nil
	})
	if err != nil {
		return storeError(err)
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"ids": body.IDs, "deleted": len(body.IDs)}})
}

func (h *Handler) resolveEntity(c *fiber.Ctx) (*metadata.ResolvedEntity, error) {
	name := c.Params("entity")
	entity, err := h.registry.Entity(name, h.locale(c))
	if err != nil {
		return nil, UnknownEntityError(name)
	}
	return entity, nil
}

// acceptLanguageMatcher is implemented by translators that can negotiate
// an Accept-Language header, such as metadata.Catalog.
type acceptLanguageMatcher interface {
	MatchAcceptLanguage(header string) string
}

// locale picks the request locale: ?locale= first, then Accept-Language.
func (h *Handler) locale(c *fiber.Ctx) string {
	tr := h.registry.Translator()
	if loc := c.Query("locale"); loc != "" {
		return tr.Match(loc)
	}
	if header := c.Get(fiber.HeaderAcceptLanguage); header != "" {
		if m, ok := tr.(acceptLanguageMatcher); ok {
			return m.MatchAcceptLanguage(header)
		}
		return tr.Match(header)
	}
	return tr.Match("")
}

func getUser(c *fiber.Ctx) *metadata.UserContext {
	user, _ := c.Locals("user").(*metadata.UserContext)
	return user
}

// organization scopes persisted view overrides. Anonymous callers share
// the "public" scope.
func organization(c *fiber.Ctx) string {
	if org := getUser(c).Organization(); org != "" {
		return org
	}
	return "public"
}

// withItemActions adds the ids of the item actions visible on each record
// under "_actions".
func withItemActions(entity *metadata.ResolvedEntity, rows []map[string]any) []map[string]any {
	if len(entity.ItemActions) == 0 {
		return rows
	}
	for _, row := range rows {
		visible := entity.VisibleItemActions(row)
		ids := make([]string, len(visible))
		for i, a := range visible {
			ids[i] = a.Key
		}
		row["_actions"] = ids
	}
	return rows
}
