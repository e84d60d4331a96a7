package errors

import (
	"errors"
	"net/http"

	"github.com/carbonledger/api/shared/apierror"
	sharedInterfaces "github.com/carbonledger/api/shared/interfaces"
	"github.com/gofiber/fiber/v2"
)

var (
	ErrTargetNotFound  = sharedInterfaces.ErrTargetNotFound
	ErrDuplicateTarget = errors.New("target with this name already exists")
	ErrInvalidYears    = errors.New("base year must be less than target year")
	ErrTargetInUse     = errors.New("target is still referenced by tasks")
)

const (
	CodeTargetNotFound  = "TARGET_NOT_FOUND"
	CodeDuplicateTarget = "DUPLICATE_TARGET"
	CodeInvalidYears    = "INVALID_YEARS"
	CodeTargetInUse     = "TARGET_IN_USE"
)

type ErrorResponse = apierror.ErrorResponse

func HandleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrTargetNotFound):
		return apierror.Respond(c, http.StatusNotFound, CodeTargetNotFound, "Target not found", nil)
	case errors.Is(err, ErrDuplicateTarget):
		return apierror.Respond(c, http.StatusConflict, CodeDuplicateTarget, "Target with this name already exists", nil)
	case errors.Is(err, ErrInvalidYears):
		return apierror.Respond(c, http.StatusBadRequest, CodeInvalidYears, "Base year must be less than target year", nil)
	case errors.Is(err, ErrTargetInUse):
		return apierror.Respond(c, http.StatusConflict, CodeTargetInUse, "Target is still referenced by tasks", nil)
	default:
		return apierror.HandleCommon(c, err)
	}
}
