package errors

import (
	"errors"
	"net/http"

	"github.com/carbonledger/api/shared/apierror"
	"github.com/gofiber/fiber/v2"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password is not strong enough")
	ErrUserInactive       = errors.New("user is inactive")
	// ErrPasswordIncorrect rejects a profile password change.
	ErrPasswordIncorrect = errors.New("password incorrect")
	// ErrPasswordRejected rejects a credentials change.
	ErrPasswordRejected  = errors.New("invalid password")
	ErrCannotDeleteAdmin = errors.New("cannot delete an administrator")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrRecaptchaRejected = errors.New("recaptcha verification failed")
)

const (
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeUserInactive       = "USER_INACTIVE"
	CodePasswordIncorrect  = "PASSWORD_INCORRECT"
	CodeCannotDeleteAdmin  = "CANNOT_DELETE_ADMIN"
	CodeRecaptchaFailed    = "RECAPTCHA_FAILED"
)

type ErrorResponse = apierror.ErrorResponse

func HandleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrUserNotFound):
		return apierror.Respond(c, http.StatusNotFound, CodeUserNotFound, "User not found", nil)
	case errors.Is(err, ErrDuplicateEmail):
		return apierror.Respond(c, http.StatusConflict, CodeDuplicateEmail, "User already exists", nil)
	case errors.Is(err, ErrInvalidCredentials):
		return apierror.Respond(c, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password", nil)
	case errors.Is(err, ErrUserInactive):
		return apierror.Respond(c, http.StatusForbidden, CodeUserInactive, "Account is inactive", nil)
	case errors.Is(err, ErrWeakPassword):
		return apierror.Respond(c, http.StatusBadRequest, CodeWeakPassword, "Password is not strong enough!", nil)
	case errors.Is(err, ErrPasswordIncorrect):
		return apierror.Respond(c, http.StatusBadRequest, CodePasswordIncorrect, "Password incorrect", nil)
	case errors.Is(err, ErrPasswordRejected):
		return apierror.Respond(c, http.StatusUnauthorized, CodePasswordIncorrect, "Invalid password", nil)
	case errors.Is(err, ErrCannotDeleteAdmin):
		return apierror.Respond(c, http.StatusBadRequest, CodeCannotDeleteAdmin, "Administrators cannot be deleted", nil)
	case errors.Is(err, ErrRecaptchaRejected):
		return apierror.Respond(c, http.StatusBadRequest, CodeRecaptchaFailed, "Recaptcha verification failed", nil)
	case errors.Is(err, ErrInvalidRequest):
		return apierror.Respond(c, http.StatusBadRequest, apierror.CodeInvalidRequest, err.Error(), nil)
	default:
		return apierror.HandleCommon(c, err)
	}
}
