package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/carbonledger/api/shared/apierror"
	sharedInterfaces "github.com/carbonledger/api/shared/interfaces"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrDuplicateTask  = errors.New("task with this name already exists")
	ErrTargetNotFound = sharedInterfaces.ErrTargetNotFound
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidDueDate = errors.New("invalid due date")
)

// UnknownUsersError lists assignee ids that match no user.
type UnknownUsersError struct {
	IDs []uuid.UUID
}

func (e *UnknownUsersError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.String()
	}
	return "one or more user IDs are invalid: " + strings.Join(ids, ", ")
}

const (
	CodeTaskNotFound   = "TASK_NOT_FOUND"
	CodeDuplicateTask  = "DUPLICATE_TASK"
	CodeTargetNotFound = "TARGET_NOT_FOUND"
	CodeUserNotFound   = "USER_NOT_FOUND"
	CodeInvalidDueDate = "INVALID_DUE_DATE"
	CodeUnknownUsers   = "UNKNOWN_USERS"
)

type ErrorResponse = apierror.ErrorResponse

func HandleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	var unknown *UnknownUsersError
	switch {
	case errors.As(err, &unknown):
		return apierror.Respond(c, http.StatusBadRequest, CodeUnknownUsers, "One or more user IDs are invalid", unknown.IDs)
	case errors.Is(err, ErrTaskNotFound):
		return apierror.Respond(c, http.StatusNotFound, CodeTaskNotFound, "Task not found", nil)
	case errors.Is(err, ErrDuplicateTask):
		// Existing clients expect 400 rather than 409 here.
		return apierror.Respond(c, http.StatusBadRequest, CodeDuplicateTask, "Task with this name already exists", nil)
	case errors.Is(err, ErrTargetNotFound):
		return apierror.Respond(c, http.StatusBadRequest, CodeTargetNotFound, "Target not found", nil)
	case errors.Is(err, ErrUserNotFound):
		return apierror.Respond(c, http.StatusNotFound, CodeUserNotFound, "User not found", nil)
	case errors.Is(err, ErrInvalidDueDate):
		return apierror.Respond(c, http.StatusBadRequest, CodeInvalidDueDate, err.Error(), nil)
	default:
		return apierror.HandleCommon(c, err)
	}
}
