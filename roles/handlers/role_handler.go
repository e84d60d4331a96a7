package handlers

import (
	"net/http"

	"github.com/carbonledger/api/internal/pkg/log"
	"github.com/carbonledger/api/internal/types"
	"github.com/carbonledger/api/internal/validation"
	"github.com/carbonledger/api/roles/errors"
	"github.com/carbonledger/api/roles/models"
	"github.com/carbonledger/api/roles/services"
	"github.com/carbonledger/api/shared/apierror"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
)

type RoleHandler struct {
	service services.RoleService
}

func NewRoleHandler(service services.RoleService) *RoleHandler {
	return &RoleHandler{service: service}
}

// Create creates a role and assigns it to the listed users.
// Endpoint: POST /roles
func (h *RoleHandler) Create(c *fiber.Ctx) error {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return apierror.HandleUserContextError(c)
	}

	var req models.CreateRoleRequest
	if err := validation.ParseAndValidate(c, &req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	role, err := h.service.Create(c.UserContext(), &req, user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Role created and assigned to users successfully",
		"role":    role,
	})
}

// List returns every role with its members.
// Endpoint: GET /roles
func (h *RoleHandler) List(c *fiber.Ctx) error {
	roles, err := h.service.List(c.UserContext())
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(roles)
}

// Update edits a role.
// Endpoint: PUT /roles/:id
func (h *RoleHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.FromString(c.Params("id"))
	if err != nil {
		return apierror.HandleUUIDError(c, "id")
	}

	var req models.UpdateRoleRequest
	if err := validation.ParseAndValidate(c, &req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	role, err := h.service.Update(c.UserContext(), id, &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Role updated successfully", "role": role})
}

// Delete removes a role and detaches its members.
// Endpoint: DELETE /roles/:id
func (h *RoleHandler) Delete(c *fiber.Ctx) error {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return apierror.HandleUserContextError(c)
	}
	id, err := uuid.FromString(c.Params("id"))
	if err != nil {
		return apierror.HandleUUIDError(c, "id")
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return errors.HandleServiceError(c, err)
	}
	log.InfoWithContext(c.UserContext(), "role %s deleted by %s", id, user.UserID)
	return c.JSON(fiber.Map{"message": "Role deleted successfully"})
}
