package engine

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"metadesk-backend/internal/export"
)

// Export handles GET /api/:entity/export. The list query of the request is
// compiled as a single page of at most ExportMaxRows records.
func (h *Handler) Export(c *fiber.Ctx) error {
	entity, err := h.resolveEntity(c)
	if err != nil {
		return err
	}

	state, _, err := h.listState(c, entity)
	if err != nil {
		return err
	}
	columns := export.Columns(entity, state.Properties)
	d := state.Descriptor
	d.Properties = columns
	d.Page = 1
	d.Size = h.opts.ExportMaxRows
	if d.Size < 1 {
		d.Size = 5000
	}
	q := h.compiler.Compile(d, entity.SearchFields())

	model, err := h.models.Model(entity.Name)
	if err != nil {
		return storeError(err)
	}
	rows, err := model.FindMany(c.UserContext(), q)
	if err != nil {
		return storeError(fmt.Errorf("export %s: %w", entity.Name, err))
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, entity, columns, rows); err != nil {
		return fmt.Errorf("export %s: %w", entity.Name, err)
	}

	c.Set(fiber.HeaderContentType, export.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, export.Filename(entity)))
	return c.Send(buf.Bytes())
}
