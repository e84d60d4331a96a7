package errors

import (
	"errors"
	"net/http"

	"github.com/carbonledger/api/shared/apierror"
	"github.com/gofiber/fiber/v2"
)

var (
	ErrRoleNotFound    = errors.New("role not found")
	ErrDuplicateRole   = errors.New("role already exists")
	ErrUsersRequired   = errors.New("please provide user IDs to assign the role")
	ErrUnknownUsers    = errors.New("unknown users")
	ErrNothingToUpdate = errors.New("at least one update field is required (name, usersIds, permissions)")
)

const (
	CodeRoleNotFound    = "ROLE_NOT_FOUND"
	CodeDuplicateRole   = "DUPLICATE_ROLE"
	CodeUsersRequired   = "USERS_REQUIRED"
	CodeUnknownUsers    = "UNKNOWN_USERS"
	CodeNothingToUpdate = "NOTHING_TO_UPDATE"
)

type ErrorResponse = apierror.ErrorResponse

func HandleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrRoleNotFound):
		return apierror.Respond(c, http.StatusNotFound, CodeRoleNotFound, "Role not found", nil)
	case errors.Is(err, ErrDuplicateRole):
		return apierror.Respond(c, http.StatusConflict, CodeDuplicateRole, "Role already exists", nil)
	case errors.Is(err, ErrUsersRequired):
		return apierror.Respond(c, http.StatusBadRequest, CodeUsersRequired, "Please provide user IDs to assign the role", nil)
	case errors.Is(err, ErrUnknownUsers):
		return apierror.Respond(c, http.StatusBadRequest, CodeUnknownUsers, "Some users do not exist", err.Error())
	case errors.Is(err, ErrNothingToUpdate):
		return apierror.Respond(c, http.StatusBadRequest, CodeNothingToUpdate, "At least one update field is required (name, usersIds, permissions)", nil)
	default:
		return apierror.HandleCommon(c, err)
	}
}
