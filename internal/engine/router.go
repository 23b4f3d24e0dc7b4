package engine

import "github.com/gofiber/fiber/v2"

// RegisterRoutes registers the entity, metadata and view routes behind
// middleware. Fixed paths are registered before the /:entity/:id patterns
// they would otherwise match.
func RegisterRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	api := app.Group("/api", middleware...)

	api.Get("/_meta", h.Entities)
	api.Get("/_meta/:entity", h.Meta)
	api.Get("/_views/:entity/:view", h.GetView)
	api.Put("/_views/:entity/:view", h.SaveView)

	api.Get("/:entity", h.List)
	api.Get("/:entity/export", h.Export)
	api.Get("/:entity/:id", h.GetByID)
	api.Post("/:entity", h.Create)
	api.Put("/:entity/:id", h.Update)
	api.Delete("/:entity", h.BatchDelete)
	api.Delete("/:entity/:id", h.Delete)
}

// RegisterAgentRoutes registers the agent tool routes. They must be
// registered before RegisterRoutes so /api/_agent is not taken for an
// entity name.
func RegisterAgentRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	ag := app.Group("/api/_agent", middleware...)
	ag.Post("/list", h.AgentList)
	ag.Get("/description", h.AgentDescription)
}

// RegisterHealth registers GET /health.
func RegisterHealth(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
