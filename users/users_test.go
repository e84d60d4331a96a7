package users

import (
	"context"
	"net/http"
	"testing"

	"github.com/carbonledger/api/internal/cache"
	"github.com/carbonledger/api/internal/database/memory"
	"github.com/carbonledger/api/internal/platform"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/carbonledger/api/internal/testutil"
	"github.com/carbonledger/api/internal/types"
	"github.com/carbonledger/api/users/handlers"
	"github.com/carbonledger/api/users/models"
	"github.com/carbonledger/api/users/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongPassword = "Xk9#mQ2!vLp7@wRz"

type testEnv struct {
	cfg  *platformconfig.Config
	svc  services.UserService
	http *testutil.HTTPHelper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testutil.NewTestConfig(t, map[string]string{
		"RATE_LIMIT_LOGIN_ENABLED":  "false",
		"RATE_LIMIT_SIGNUP_ENABLED": "false",
	})

	base := platform.NewBaseServiceWithRepo(memory.NewRepository())
	require.NoError(t, base.EnsureIndexes(context.Background(), services.Indexes))

	caches, err := cache.NewServices(cfg.Cache)
	require.NoError(t, err)
	t.Cleanup(func() { _ = caches.Close() })

	svc := services.NewUserService(base, cfg, caches.Revocations)
	app := fiber.New()
	RegisterRoutes(app.Group("/api"), &Handlers{
		UserHandler: handlers.NewUserHandler(svc, handlers.HandlerConfig{CookieName: cfg.JWT.CookieName}),
	}, cfg, caches.Revocations)

	return &testEnv{cfg: cfg, svc: svc, http: testutil.NewHTTPHelper(t, app)}
}

func (e *testEnv) register(t *testing.T, username, email string) (uuid.UUID, string) {
	t.Helper()
	resp := e.http.NewRequest(http.MethodPost, "/api/users", models.RegisterRequest{
		Username: username,
		Email:    email,
		Password: strongPassword,
	}).Send()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]interface{}
	testutil.DecodeJSON(t, resp, &body)
	return uuid.FromStringOrNil(body["objectId"].(string)), body["accessToken"].(string)
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	return testutil.IssueToken(t, e.cfg, types.UserContext{UserID: uuid.Must(uuid.NewV4()), Username: "root", IsAdmin: true})
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	resp := env.http.NewRequest(http.MethodPost, "/api/users", models.RegisterRequest{
		Username: "ada",
		Email:    " Ada@Example.com ",
		Password: strongPassword,
	}).Send()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "jwt" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)

	var body map[string]interface{}
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, "ada@example.com", body["email"])
	assert.Equal(t, "active", body["status"])
	assert.NotEmpty(t, body["accessToken"])
	assert.NotContains(t, body, "password")

	t.Run("duplicate email", func(t *testing.T) {
		resp := env.http.NewRequest(http.MethodPost, "/api/users", models.RegisterRequest{
			Username: "other", Email: "ada@example.com", Password: strongPassword,
		}).Send()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("weak password", func(t *testing.T) {
		resp := env.http.NewRequest(http.MethodPost, "/api/users", models.RegisterRequest{
			Username: "weak", Email: "weak@example.com", Password: "password",
		}).Send()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body map[string]interface{}
		testutil.DecodeJSON(t, resp, &body)
		assert.Equal(t, "WEAK_PASSWORD", body["code"])
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := env.http.NewRequest(http.MethodPost, "/api/users", map[string]string{"username": "x"}).Send()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body map[string]interface{}
		testutil.DecodeJSON(t, resp, &body)
		assert.Equal(t, "VALIDATION_FAILED", body["code"])
		assert.Contains(t, body["message"], "email is required")
	})
}

func TestRegisterWithRecaptcha(t *testing.T) {
	cfg := testutil.NewTestConfig(t, map[string]string{"RATE_LIMIT_SIGNUP_ENABLED": "false"})
	base := platform.NewBaseServiceWithRepo(memory.NewRepository())
	svc := services.NewUserService(base, cfg, nil)

	app := fiber.New()
	handler := handlers.NewUserHandler(svc, handlers.HandlerConfig{}).
		WithRecaptcha(&testutil.FakeRecaptchaVerifier{Token: "human"})
	RegisterRoutes(app.Group("/api"), &Handlers{UserHandler: handler}, cfg, nil)
	h := testutil.NewHTTPHelper(t, app)

	req := models.RegisterRequest{Username: "bot", Email: "bot@example.com", Password: strongPassword, Recaptcha: "robot"}
	resp := h.NewRequest(http.MethodPost, "/api/users", req).Send()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]interface{}
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, "RECAPTCHA_FAILED", body["code"])

	req.Recaptcha = "human"
	resp = h.NewRequest(http.MethodPost, "/api/users", req).Send()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "grace", "grace@example.com")

	cases := []struct {
		name     string
		email    string
		password string
		status   int
	}{
		{"valid", "grace@example.com", strongPassword, http.StatusOK},
		{"case-insensitive email", "GRACE@example.com", strongPassword, http.StatusOK},
		{"padded email", "  grace@example.com ", strongPassword, http.StatusOK},
		{"wrong password", "grace@example.com", "nope", http.StatusUnauthorized},
		{"unknown email", "nobody@example.com", strongPassword, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.http.NewRequest(http.MethodPost, "/api/users/auth", models.LoginRequest{
				Email: tc.email, Password: tc.password,
			}).Send()
			require.Equal(t, tc.status, resp.StatusCode)
			var body map[string]interface{}
			testutil.DecodeJSON(t, resp, &body)
			if tc.status == http.StatusUnauthorized {
				assert.Equal(t, "Invalid email or password", body["message"])
			} else {
				assert.NotEmpty(t, body["accessToken"])
			}
		})
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "linus", "linus@example.com")

	resp := env.http.NewRequest(http.MethodGet, "/api/users/profile", nil).WithJWTAuth(token).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.http.NewRequest(http.MethodPost, "/api/users/logout", nil).WithJWTAuth(token).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.http.NewRequest(http.MethodGet, "/api/users/profile", nil).WithJWTAuth(token).Send()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	_, userToken := env.register(t, "alice", "alice@acme.io")
	env.register(t, "bob", "bob@acme.io")
	env.register(t, "carol", "carol@other.org")
	adminToken := env.adminToken(t)

	resp := env.http.NewRequest(http.MethodGet, "/api/users", nil).WithJWTAuth(userToken).Send()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.http.NewRequest(http.MethodGet, "/api/users?search=ACME&limit=1&page=2", nil).WithJWTAuth(adminToken).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Users      []models.User `json:"users"`
		Total      int64         `json:"total"`
		Page       int           `json:"page"`
		TotalPages int           `json:"totalPages"`
	}
	testutil.DecodeJSON(t, resp, &page)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Users, 1)

	resp = env.http.NewRequest(http.MethodGet, "/api/users?column=username&operator=startsWith&value=car", nil).WithJWTAuth(adminToken).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &page)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "carol", page.Users[0].Username)

	resp = env.http.NewRequest(http.MethodGet, "/api/users?column=password&operator=equals&value=x", nil).WithJWTAuth(adminToken).Send()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errBody map[string]interface{}
	testutil.DecodeJSON(t, resp, &errBody)
	assert.Equal(t, "INVALID_COLUMN", errBody["code"])
}

func TestUpdateProfileAndCredentials(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "margaret", "margaret@example.com")

	resp := env.http.NewRequest(http.MethodPut, "/api/users/profile", map[string]string{
		"city":            "Boston",
		"password":        "Zt5$hW8&nB3*kD6q",
		"currentpassword": "wrong",
	}).WithJWTAuth(token).Send()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.http.NewRequest(http.MethodPut, "/api/users/profile", map[string]string{
		"city": "Boston",
	}).WithJWTAuth(token).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, "Boston", body["city"])

	resp = env.http.NewRequest(http.MethodPut, "/api/users/credentials", map[string]string{
		"password":        "Zt5$hW8&nB3*kD6q",
		"currentpassword": "wrong",
	}).WithJWTAuth(token).Send()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = env.http.NewRequest(http.MethodPut, "/api/users/credentials", map[string]string{
		"username":        "mhamilton",
		"password":        "Zt5$hW8&nB3*kD6q",
		"currentpassword": strongPassword,
	}).WithJWTAuth(token).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, "mhamilton", body["username"])

	resp = env.http.NewRequest(http.MethodPost, "/api/users/auth", models.LoginRequest{
		Email: "margaret@example.com", Password: "Zt5$hW8&nB3*kD6q",
	}).Send()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestToggleStatusBlocksLogin(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "ken", "ken@example.com")
	otherID, _ := env.register(t, "dennis", "dennis@example.com")

	resp := env.http.NewRequest(http.MethodPut, "/api/users/status/"+otherID.String(), nil).WithJWTAuth(token).Send()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.http.NewRequest(http.MethodPut, "/api/users/status", nil).WithJWTAuth(token).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, "inactive", body["status"])

	resp = env.http.NewRequest(http.MethodPost, "/api/users/auth", models.LoginRequest{
		Email: "ken@example.com", Password: strongPassword,
	}).Send()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	adminID, _ := env.register(t, "root", "root@example.com")
	require.NoError(t, env.svc.Promote(ctx, "root@example.com"))
	userID, _ := env.register(t, "guest", "guest@example.com")
	adminToken := env.adminToken(t)

	resp := env.http.NewRequest(http.MethodPut, "/api/users/"+userID.String(), map[string]interface{}{
		"country": "NZ",
		"isAdmin": false,
	}).WithJWTAuth(adminToken).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, "NZ", body["country"])

	resp = env.http.NewRequest(http.MethodDelete, "/api/users/"+adminID.String(), nil).WithJWTAuth(adminToken).Send()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.http.NewRequest(http.MethodDelete, "/api/users/"+userID.String(), nil).WithJWTAuth(adminToken).Send()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.http.NewRequest(http.MethodGet, "/api/users/"+userID.String(), nil).WithJWTAuth(adminToken).Send()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = env.http.NewRequest(http.MethodGet, "/api/users/not-a-uuid", nil).WithJWTAuth(adminToken).Send()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
