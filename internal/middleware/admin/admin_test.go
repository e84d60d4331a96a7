package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carbonledger/api/internal/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(user *types.UserContext, cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals(types.UserCtxName, *user)
		}
		return c.Next()
	})
	app.Use(New(cfg))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })
	return app
}

func status(t *testing.T, app *fiber.App) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAdmin(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, status(t, newApp(nil, Config{})))
	assert.Equal(t, http.StatusForbidden, status(t, newApp(&types.UserContext{}, Config{})))
	assert.Equal(t, http.StatusOK, status(t, newApp(&types.UserContext{IsAdmin: true}, Config{})))

	custom := Config{Allow: func(u types.UserContext) bool { return u.Username == "ops" }}
	assert.Equal(t, http.StatusOK, status(t, newApp(&types.UserContext{Username: "ops"}, custom)))
	assert.Equal(t, http.StatusForbidden, status(t, newApp(&types.UserContext{IsAdmin: true}, custom)))
}

func TestAdminErrorBody(t *testing.T) {
	resp, err := newApp(&types.UserContext{Username: "viewer"}, Config{}).Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "FORBIDDEN", body["code"])
}
