package ratelimit

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/carbonledger/api/internal/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(handler)
	app.Post("/test", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	return app
}

func post(t *testing.T, app *fiber.App) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/test", strings.NewReader("{}"))
	req.Header.Set(types.HeaderContentType, "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestRateLimit_LoginEndpoint_RejectsExcessiveRequests(t *testing.T) {
	app := newApp(NewLoginLimiter(nil))

	for i := 0; i < 5; i++ {
		assert.Equal(t, 200, post(t, app))
	}

	req := httptest.NewRequest("POST", "/test", strings.NewReader("{}"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
	assert.Equal(t, float64(900), body["retryAfter"])
	assert.Contains(t, body["message"], "login")
}

func TestRateLimit_CustomLimits(t *testing.T) {
	limits := DefaultEndpointLimits()
	limits.Upload = platformconfig.RateLimitConfig{Enabled: true, Max: 2, Duration: time.Minute}
	app := newApp(NewUploadLimiter(&limits))

	assert.Equal(t, 200, post(t, app))
	assert.Equal(t, 200, post(t, app))
	assert.Equal(t, fiber.StatusTooManyRequests, post(t, app))
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	limits := DefaultEndpointLimits()
	limits.Signup.Enabled = false
	app := newApp(NewSignupLimiter(&limits))

	for i := 0; i < 20; i++ {
		assert.Equal(t, 200, post(t, app))
	}
}

func TestRateLimit_NextSkips(t *testing.T) {
	limits := DefaultEndpointLimits()
	limits.Login.Max = 1
	app := newApp(New(Config{
		EndpointType: EndpointLogin,
		Limits:       &limits,
		Next:         func(c *fiber.Ctx) bool { return true },
	}))

	assert.Equal(t, 200, post(t, app))
	assert.Equal(t, 200, post(t, app))
}
