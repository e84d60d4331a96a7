package handlers

import (
	"github.com/carbonledger/api/internal/filter"
	"github.com/carbonledger/api/notifications/services"
	"github.com/carbonledger/api/shared/apierror"
	"github.com/gofiber/fiber/v2"
)

type NotificationHandler struct {
	service services.NotificationService
}

func NewNotificationHandler(service services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List returns one page of notifications, newest first.
// Endpoint: GET /notifications
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	req, err := filter.ParseQuery(services.Resource, string(c.Request().URI().QueryString()))
	if err != nil {
		return apierror.HandleCommon(c, err)
	}

	page, err := h.service.List(c.UserContext(), req)
	if err != nil {
		return apierror.HandleCommon(c, err)
	}
	return c.JSON(page.Body(services.Resource.RecordsField))
}
