package handlers

import (
	"net/http"

	"github.com/carbonledger/api/internal/filter"
	"github.com/carbonledger/api/internal/types"
	"github.com/carbonledger/api/internal/validation"
	"github.com/carbonledger/api/shared/apierror"
	"github.com/carbonledger/api/targets/errors"
	"github.com/carbonledger/api/targets/models"
	"github.com/carbonledger/api/targets/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
)

type TargetHandler struct {
	service services.TargetService
}

func NewTargetHandler(service services.TargetService) *TargetHandler {
	return &TargetHandler{service: service}
}

// Endpoint: POST /targets
func (h *TargetHandler) Create(c *fiber.Ctx) error {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return apierror.HandleUserContextError(c)
	}

	var req models.CreateTargetRequest
	if err := validation.ParseAndValidate(c, &req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	target, err := h.service.Create(c.UserContext(), &req, user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(target)
}

// Update changes the target named in the body.
// Endpoint: PUT /targets
func (h *TargetHandler) Update(c *fiber.Ctx) error {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return apierror.HandleUserContextError(c)
	}

	var req models.UpdateTargetRequest
	if err := validation.ParseAndValidate(c, &req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	target, err := h.service.Update(c.UserContext(), &req, user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(target)
}

// Endpoint: DELETE /targets/:id
func (h *TargetHandler) Delete(c *fiber.Ctx) error {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return apierror.HandleUserContextError(c)
	}
	id, err := uuid.FromString(c.Params("id"))
	if err != nil {
		return apierror.HandleUUIDError(c, "id")
	}

	if err := h.service.Delete(c.UserContext(), id, user); err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Target deleted"})
}

// Endpoint: GET /targets
func (h *TargetHandler) List(c *fiber.Ctx) error {
	req, err := filter.ParseQuery(services.Resource, string(c.Request().URI().QueryString()))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}

	page, err := h.service.List(c.UserContext(), req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(page.Body(services.Resource.RecordsField))
}
