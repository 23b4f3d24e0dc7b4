package instrument

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMiddlewareAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	app := fiber.New()
	app.Use(Middleware(zap.New(core)))
	app.Get("/ok", func(c *fiber.Ctx) error {
		_, span := GetInstrumenter(c.UserContext()).StartSpan(c.UserContext(), "api", "test", "ok")
		span.SetEntity("businessUnit", "bu1")
		span.End()
		return c.SendString(TraceID(c.UserContext()))
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "nope")
	})

	req := httptest.NewRequest("GET", "/ok", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.Header.Get(HeaderRequestID))

	spans := logs.FilterMessage("span").All()
	require.Len(t, spans, 1)
	fields := spans[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "businessUnit", fields["entity"])
	assert.Equal(t, "bu1", fields["record_id"])

	resp, err = app.Test(httptest.NewRequest("GET", "/fail", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))

	access := logs.FilterMessage("request").All()
	require.Len(t, access, 2)
	assert.Equal(t, "/ok", access[0].ContextMap()["path"])
	assert.EqualValues(t, 200, access[0].ContextMap()["status"])
	assert.EqualValues(t, fiber.StatusTeapot, access[1].ContextMap()["status"])
}

func TestGetInstrumenterDefaultsToNoop(t *testing.T) {
	inst := GetInstrumenter(context.Background())
	_, span := inst.StartSpan(context.Background(), "cli", "agent", "list")
	span.SetStatus("error")
	span.End()
	assert.Empty(t, span.TraceID())
	assert.IsType(t, &NoopInstrumenter{}, inst)
}
