package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arcade/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtxHandlerAddsRequestValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("production", &buf)

	ctx := context.WithValue(context.Background(), RequestIDKey, "rid-1")
	ctx = context.WithValue(ctx, ProfileIDKey, uint64(7))
	ctx = context.WithValue(ctx, TraceIDKey, "trace-1")
	logger.With("component", "test").InfoContext(ctx, "hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "rid-1", record["request_id"])
	assert.Equal(t, float64(7), record["profile_id"])
	assert.Equal(t, "trace-1", record["trace_id"])
	assert.Equal(t, "test", record["component"])
}

func TestContextMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(requestid.New())
	app.Use(ContextMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		rid, _ := ctx.Value(RequestIDKey).(string)
		return c.JSON(fiber.Map{
			"request_id":     rid,
			"correlation_id": observability.ExtractCorrelationID(ctx),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "abc-123", body["request_id"])
	assert.Equal(t, "abc-123", body["correlation_id"])
}

func TestStoreTimeout(t *testing.T) {
	app := fiber.New()
	app.Get("/", StoreTimeout(50*time.Millisecond), func(c *fiber.Ctx) error {
		deadline, ok := c.UserContext().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/unbounded", StoreTimeout(0), func(c *fiber.Ctx) error {
		_, ok := c.UserContext().Deadline()
		assert.False(t, ok)
		return c.SendStatus(fiber.StatusNoContent)
	})

	for _, path := range []string{"/", "/unbounded"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	}
}
