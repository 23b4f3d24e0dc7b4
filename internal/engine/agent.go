package engine

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"metadesk-backend/internal/agent"
	"metadesk-backend/internal/instrument"
	"metadesk-backend/internal/store"
)

// AgentModels exposes store models to the agent tool.
func AgentModels(models *store.Models) agent.Models {
	return agent.ModelsFunc(func(entity string) (agent.ModelClient, error) {
		m, err := models.Model(entity)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}

// AgentList handles POST /api/_agent/list. The envelope is the response
// contract, so tool failures are still answered with 200.
func (h *Handler) AgentList(c *fiber.Ctx) error {
	if h.tool == nil {
		return ForbiddenError("Agent access is disabled")
	}
	ctx := c.UserContext()
	env := h.runAgent(ctx, json.RawMessage(c.Body()))
	return c.JSON(env)
}

func (h *Handler) runAgent(ctx context.Context, raw json.RawMessage) agent.Envelope {
	ctx, span := instrument.GetInstrumenter(ctx).StartSpan(ctx, "agent", "tool", "list")
	defer span.End()

	env := h.tool.Execute(ctx, raw)
	if env.Meta != nil {
		span.SetEntity(env.Meta.Model, "")
	}
	if code := env.Code(); code != "" {
		span.SetStatus("error")
		span.SetMetadata("code", code)
	}
	return env
}

// AgentDescription handles GET /api/_agent/description.
func (h *Handler) AgentDescription(c *fiber.Ctx) error {
	if h.tool == nil {
		return ForbiddenError("Agent access is disabled")
	}
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	return c.SendString(h.tool.Description())
}
