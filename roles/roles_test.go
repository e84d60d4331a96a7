package roles

import (
	"context"
	"net/http"
	"testing"

	"github.com/carbonledger/api/internal/database/memory"
	"github.com/carbonledger/api/internal/platform"
	"github.com/carbonledger/api/internal/testutil"
	"github.com/carbonledger/api/internal/types"
	"github.com/carbonledger/api/roles/handlers"
	"github.com/carbonledger/api/roles/services"
	userModels "github.com/carbonledger/api/users/models"
	userServices "github.com/carbonledger/api/users/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roleBody struct {
	ObjectId    uuid.UUID `json:"objectId"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	Users       []struct {
		ObjectId uuid.UUID `json:"objectId"`
		Username string    `json:"username"`
	} `json:"users"`
}

func setup(t *testing.T) (*testutil.HTTPHelper, *platform.BaseService, userServices.UserService, string, string) {
	t.Helper()
	cfg := testutil.NewTestConfig(t, nil)
	base := platform.NewBaseServiceWithRepo(memory.NewRepository())
	require.NoError(t, base.EnsureIndexes(context.Background(), services.Indexes))

	users := userServices.NewUserService(base, cfg, nil)
	app := fiber.New()
	RegisterRoutes(app.Group("/api"), &Handlers{
		RoleHandler: handlers.NewRoleHandler(services.NewRoleService(base, users)),
	}, cfg, nil)

	adminToken := testutil.IssueToken(t, cfg, types.UserContext{UserID: uuid.Must(uuid.NewV4()), IsAdmin: true})
	userToken := testutil.IssueToken(t, cfg, types.UserContext{UserID: uuid.Must(uuid.NewV4())})
	return testutil.NewHTTPHelper(t, app), base, users, adminToken, userToken
}

func seedUser(t *testing.T, base *platform.BaseService, name string) uuid.UUID {
	t.Helper()
	u := userModels.User{ObjectId: uuid.Must(uuid.NewV4()), Username: name, Email: name + "@example.com", Status: userModels.StatusActive}
	require.NoError(t, (<-base.Repository.Save(context.Background(), userServices.Collection, u)).Error)
	return u.ObjectId
}

func TestRoleLifecycle(t *testing.T) {
	h, base, users, adminToken, userToken := setup(t)
	ctx := context.Background()
	alice := seedUser(t, base, "alice")
	bob := seedUser(t, base, "bob")

	resp := h.NewRequest(http.MethodPost, "/api/roles", map[string]interface{}{
		"name": "auditor", "usersIds": []uuid.UUID{alice},
	}).WithJWTAuth(userToken).Send()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = h.NewRequest(http.MethodPost, "/api/roles", map[string]interface{}{
		"name": "auditor", "permissions": []string{"emissions:read"},
	}).WithJWTAuth(adminToken).Send()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = h.NewRequest(http.MethodPost, "/api/roles", map[string]interface{}{
		"name": "auditor", "usersIds": []uuid.UUID{alice, uuid.Must(uuid.NewV4())},
	}).WithJWTAuth(adminToken).Send()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = h.NewRequest(http.MethodPost, "/api/roles", map[string]interface{}{
		"name": "auditor", "usersIds": []uuid.UUID{alice}, "permissions": []string{"emissions:read"},
	}).WithJWTAuth(adminToken).Send()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Role roleBody `json:"role"`
	}
	testutil.DecodeJSON(t, resp, &created)
	require.Len(t, created.Role.Users, 1)
	assert.Equal(t, "alice", created.Role.Users[0].Username)
	roleID := created.Role.ObjectId

	u, err := users.Get(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, u.RoleId)
	assert.Equal(t, roleID, *u.RoleId)

	resp = h.NewRequest(http.MethodPut, "/api/roles/"+roleID.String(), map[string]interface{}{}).WithJWTAuth(adminToken).Send()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = h.NewRequest(http.MethodPut, "/api/roles/"+uuid.Must(uuid.NewV4()).String(), map[string]interface{}{"name": "x"}).WithJWTAuth(adminToken).Send()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = h.NewRequest(http.MethodPut, "/api/roles/"+roleID.String(), map[string]interface{}{
		"usersIds": []uuid.UUID{bob},
	}).WithJWTAuth(adminToken).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	u, err = users.Get(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, u.RoleId)
	u, err = users.Get(ctx, bob)
	require.NoError(t, err)
	require.NotNil(t, u.RoleId)

	resp = h.NewRequest(http.MethodGet, "/api/roles", nil).WithJWTAuth(userToken).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []roleBody
	testutil.DecodeJSON(t, resp, &list)
	require.Len(t, list, 1)
	require.Len(t, list[0].Users, 1)
	assert.Equal(t, "bob", list[0].Users[0].Username)
	assert.Equal(t, []string{"emissions:read"}, list[0].Permissions)

	resp = h.NewRequest(http.MethodDelete, "/api/roles/"+roleID.String(), nil).WithJWTAuth(adminToken).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	u, err = users.Get(ctx, bob)
	require.NoError(t, err)
	assert.Nil(t, u.RoleId)

	resp = h.NewRequest(http.MethodDelete, "/api/roles/"+roleID.String(), nil).WithJWTAuth(adminToken).Send()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDuplicateRoleName(t *testing.T) {
	h, base, _, adminToken, _ := setup(t)
	alice := seedUser(t, base, "alice")

	body := map[string]interface{}{"name": "ops", "usersIds": []uuid.UUID{alice}}
	resp := h.NewRequest(http.MethodPost, "/api/roles", body).WithJWTAuth(adminToken).Send()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = h.NewRequest(http.MethodPost, "/api/roles", body).WithJWTAuth(adminToken).Send()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}
