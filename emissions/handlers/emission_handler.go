package handlers

import (
	"net/http"

	"github.com/carbonledger/api/emissions/errors"
	"github.com/carbonledger/api/emissions/models"
	"github.com/carbonledger/api/emissions/services"
	"github.com/carbonledger/api/internal/filter"
	"github.com/carbonledger/api/internal/types"
	"github.com/carbonledger/api/internal/validation"
	"github.com/carbonledger/api/shared/apierror"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
)

type EmissionHandler struct {
	service services.EmissionService
}

func NewEmissionHandler(service services.EmissionService) *EmissionHandler {
	return &EmissionHandler{service: service}
}

// Create stores one emission record.
// Endpoint: POST /emissions
func (h *EmissionHandler) Create(c *fiber.Ctx) error {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return apierror.HandleUserContextError(c)
	}

	var in models.EmissionInput
	if err := validation.ParseAndValidate(c, &in); err != nil {
		return errors.HandleServiceError(c, err)
	}

	record, err := h.service.Create(c.UserContext(), &in, user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(record)
}

// Update changes the fields present in the body.
// Endpoint: PUT /emissions/:id
func (h *EmissionHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.FromString(c.Params("id"))
	if err != nil {
		return apierror.HandleUUIDError(c, "id")
	}

	var in models.EmissionUpdate
	if err := validation.ParseAndValidate(c, &in); err != nil {
		return errors.HandleServiceError(c, err)
	}

	record, err := h.service.Update(c.UserContext(), id, &in)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(record)
}

// Endpoint: DELETE /emissions/:id
func (h *EmissionHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.FromString(c.Params("id"))
	if err != nil {
		return apierror.HandleUUIDError(c, "id")
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Data deleted successfully"})
}

// List returns one page of records.
// Endpoint: GET /emissions
func (h *EmissionHandler) List(c *fiber.Ctx) error {
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

// Batch inserts a JSON array of records.
// Endpoint: POST /emissions/batch
func (h *EmissionHandler) Batch(c *fiber.Ctx) error {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return apierror.HandleUserContextError(c)
	}

	var rows []models.EmissionInput
	if err := c.BodyParser(&rows); err != nil {
		return errors.HandleServiceError(c, validation.ErrInvalidBody)
	}

	count, err := h.service.Batch(c.UserContext(), rows, models.SourceBulkUpload, user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Data inserted successfully",
		"count":   count,
	})
}

// Upload imports a CSV file sent in the multipart field "file".
// Endpoint: POST /emissions/upload
func (h *EmissionHandler) Upload(c *fiber.Ctx) error {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return apierror.HandleUserContextError(c)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return errors.HandleServiceError(c, errors.ErrMissingFile)
	}
	file, err := header.Open()
	if err != nil {
		return errors.HandleServiceError(c, errors.ErrMissingFile)
	}
	defer file.Close()

	count, err := h.service.ImportCSV(c.UserContext(), file, models.SourceCSVUpload, user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "File uploaded successfully",
		"count":   count,
	})
}

// Generate fills emission factors for the requested rows.
// Endpoint: POST /emissions/generate
func (h *EmissionHandler) Generate(c *fiber.Ctx) error {
	var rows []models.GenerateRow
	if err := c.BodyParser(&rows); err != nil {
		return errors.HandleServiceError(c, validation.ErrInvalidBody)
	}

	generated, err := h.service.Generate(c.UserContext(), rows)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "success", "data": generated})
}
