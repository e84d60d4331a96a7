package handlers

import (
	"net/http"

	"github.com/carbonledger/api/internal/filter"
	"github.com/carbonledger/api/internal/types"
	"github.com/carbonledger/api/internal/validation"
	"github.com/carbonledger/api/shared/apierror"
	"github.com/carbonledger/api/tasks/errors"
	"github.com/carbonledger/api/tasks/models"
	"github.com/carbonledger/api/tasks/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
)

type TaskHandler struct {
	service services.TaskService
}

func NewTaskHandler(service services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

func currentUser(c *fiber.Ctx) (types.UserContext, bool) {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	return user, ok
}

// Endpoint: POST /tasks
func (h *TaskHandler) Create(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apierror.HandleUserContextError(c)
	}

	var req models.CreateTaskRequest
	if err := validation.ParseAndValidate(c, &req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	task, err := h.service.Create(c.UserContext(), &req, user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(task)
}

// Assign replaces the assignees of the task named by id in the body.
// Endpoint: PUT /tasks/assign
func (h *TaskHandler) Assign(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apierror.HandleUserContextError(c)
	}

	var req models.AssignTaskRequest
	if err := validation.ParseAndValidate(c, &req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	task, err := h.service.Assign(c.UserContext(), &req, user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Task assigned successfully", "task": task})
}

// Endpoint: PUT /tasks/:id/complete
func (h *TaskHandler) Complete(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apierror.HandleUserContextError(c)
	}
	id, err := uuid.FromString(c.Params("id"))
	if err != nil {
		return apierror.HandleUUIDError(c, "id")
	}

	task, err := h.service.Complete(c.UserContext(), id, user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Task marked as completed successfully", "task": task})
}

// Endpoint: PUT /tasks/:id
func (h *TaskHandler) Update(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apierror.HandleUserContextError(c)
	}
	id, err := uuid.FromString(c.Params("id"))
	if err != nil {
		return apierror.HandleUUIDError(c, "id")
	}

	var req models.UpdateTaskRequest
	if err := validation.ParseAndValidate(c, &req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	task, err := h.service.Update(c.UserContext(), id, &req, user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(task)
}

// Endpoint: DELETE /tasks/:id
func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.FromString(c.Params("id"))
	if err != nil {
		return apierror.HandleUUIDError(c, "id")
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Task deleted successfully"})
}

// List returns one page of tasks. dueDate=<day> limits the page to that day.
// Endpoint: GET /tasks
func (h *TaskHandler) List(c *fiber.Ctx) error {
	req, err := filter.ParseQuery(services.Resource, string(c.Request().URI().QueryString()))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}

	page, err := h.service.List(c.UserContext(), req, c.Query("dueDate"))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(page.Body(services.Resource.RecordsField))
}

// ListForUser returns the tasks assigned to a user. Only admins may look at
// another user's tasks.
// Endpoint: GET /tasks/user/:userId
func (h *TaskHandler) ListForUser(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apierror.HandleUserContextError(c)
	}
	userID, err := uuid.FromString(c.Params("userId"))
	if err != nil {
		return apierror.HandleUUIDError(c, "userId")
	}
	if userID != user.UserID && !user.IsAdmin {
		return apierror.HandleForbidden(c, "Admin access required")
	}

	req, err := filter.ParseQuery(services.Resource, string(c.Request().URI().QueryString()))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}

	page, err := h.service.ListForUser(c.UserContext(), userID, req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(page.Body(services.Resource.RecordsField))
}
