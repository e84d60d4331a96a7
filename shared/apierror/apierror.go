// Package apierror renders the error responses shared by every resource package.
// Resource errors packages handle their own sentinels first and fall back to HandleCommon.
package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/filter"
	"github.com/carbonledger/api/internal/pkg/log"
	"github.com/carbonledger/api/internal/validation"
	"github.com/gofiber/fiber/v2"
)

const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidUUID        = "INVALID_UUID"
	CodeMissingUserContext = "MISSING_USER_CONTEXT"
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidColumn      = "INVALID_COLUMN"
	CodeInvalidOperator    = "INVALID_OPERATOR"
	CodeOperatorMismatch   = "OPERATOR_NOT_APPLICABLE"
	CodeInvalidValue       = "INVALID_VALUE"
	CodeDuplicateKey       = "DUPLICATE_KEY"
	CodeDatabaseError      = "DATABASE_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Respond writes an ErrorResponse with the given status.
func Respond(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	return c.Status(status).JSON(ErrorResponse{Code: code, Message: message, Details: details})
}

// HandleCommon maps the errors every resource can produce: body and field
// validation, list filter errors, repository errors and everything else.
func HandleCommon(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return Respond(c, http.StatusBadRequest, CodeValidationFailed, verr.Error(), verr.Fields)
	case errors.Is(err, validation.ErrInvalidBody):
		return Respond(c, http.StatusBadRequest, CodeInvalidRequestBody, "Invalid request body", err.Error())
	case errors.Is(err, validation.ErrValidation):
		return Respond(c, http.StatusBadRequest, CodeValidationFailed, err.Error(), nil)
	case errors.Is(err, filter.ErrInvalidColumn):
		return Respond(c, http.StatusBadRequest, CodeInvalidColumn, err.Error(), nil)
	case errors.Is(err, filter.ErrOperatorNotApplicable):
		return Respond(c, http.StatusBadRequest, CodeOperatorMismatch, err.Error(), nil)
	case errors.Is(err, filter.ErrInvalidOperator):
		return Respond(c, http.StatusBadRequest, CodeInvalidOperator, err.Error(), nil)
	case errors.Is(err, filter.ErrInvalidValue):
		return Respond(c, http.StatusBadRequest, CodeInvalidValue, err.Error(), nil)
	case errors.Is(err, interfaces.ErrDuplicateKey):
		return Respond(c, http.StatusConflict, CodeDuplicateKey, "Resource already exists", err.Error())
	case errors.Is(err, filter.ErrStoreFailure):
		log.ErrorWithContext(c.UserContext(), "store failure on %s: %v", c.Path(), err)
		return Respond(c, http.StatusInternalServerError, CodeDatabaseError, "Database operation failed", nil)
	default:
		log.ErrorWithContext(c.UserContext(), "unexpected error on %s: %v", c.Path(), err)
		return Respond(c, http.StatusInternalServerError, CodeInternalError, "An unexpected error occurred", nil)
	}
}

func HandleValidationError(c *fiber.Ctx, message string) error {
	return Respond(c, http.StatusBadRequest, CodeInvalidRequest, message, message)
}

func HandleUUIDError(c *fiber.Ctx, fieldName string) error {
	msg := fmt.Sprintf("Invalid %s format", fieldName)
	return Respond(c, http.StatusBadRequest, CodeInvalidUUID, msg, msg)
}

func HandleUserContextError(c *fiber.Ctx) error {
	return Respond(c, http.StatusUnauthorized, CodeMissingUserContext, "Invalid user context", nil)
}

// HandleForbidden reports an authenticated caller without the required rights.
func HandleForbidden(c *fiber.Ctx, message string) error {
	return Respond(c, http.StatusForbidden, CodeForbidden, message, nil)
}
