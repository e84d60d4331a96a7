package notifications

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/carbonledger/api/internal/database/memory"
	"github.com/carbonledger/api/internal/notify"
	"github.com/carbonledger/api/internal/platform"
	"github.com/carbonledger/api/internal/testutil"
	"github.com/carbonledger/api/internal/types"
	"github.com/carbonledger/api/notifications/handlers"
	"github.com/carbonledger/api/notifications/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListNotifications(t *testing.T) {
	cfg := testutil.NewTestConfig(t, nil)
	base := platform.NewBaseServiceWithRepo(memory.NewRepository())
	ctx := context.Background()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, msg := range []string{"created new target", "updated target", "deleted target"} {
		n := notify.Notification{
			ObjectId:  uuid.Must(uuid.NewV4()),
			Message:   msg,
			Status:    notify.StatusSent,
			ActorName: "planner",
			CreatedAt: start.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, (<-base.Repository.Save(ctx, notify.Collection, n)).Error)
	}

	app := fiber.New()
	RegisterRoutes(app.Group("/api"), &Handlers{
		NotificationHandler: handlers.NewNotificationHandler(services.NewNotificationService(base)),
	}, cfg, nil)
	h := testutil.NewHTTPHelper(t, app)
	token := testutil.IssueToken(t, cfg, types.UserContext{UserID: uuid.Must(uuid.NewV4())})

	resp := h.NewRequest(http.MethodGet, "/api/notifications", nil).Send()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	var body struct {
		Notifications []notify.Notification `json:"notifications"`
		Total         int64                 `json:"total"`
	}
	resp = h.NewRequest(http.MethodGet, "/api/notifications", nil).WithJWTAuth(token).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &body)
	require.Len(t, body.Notifications, 3)
	assert.Equal(t, "deleted target", body.Notifications[0].Message)

	resp = h.NewRequest(http.MethodGet, "/api/notifications?search=TARGET&column=message&operator=endsWith&value=d%20target", nil).WithJWTAuth(token).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, int64(2), body.Total)

	resp = h.NewRequest(http.MethodGet, "/api/notifications?column=createdAt&operator=lessThan&value=2024-03-01T12:30:00Z", nil).WithJWTAuth(token).Send()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &body)
	require.Equal(t, int64(1), body.Total)
	assert.Equal(t, "created new target", body.Notifications[0].Message)
}
