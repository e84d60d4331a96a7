package handlers

import (
	"net/http"
	"time"

	"github.com/carbonledger/api/internal/filter"
	"github.com/carbonledger/api/internal/middleware/authjwt"
	"github.com/carbonledger/api/internal/pkg/log"
	"github.com/carbonledger/api/internal/recaptcha"
	"github.com/carbonledger/api/internal/types"
	"github.com/carbonledger/api/internal/validation"
	"github.com/carbonledger/api/shared/apierror"
	"github.com/carbonledger/api/users/errors"
	"github.com/carbonledger/api/users/models"
	"github.com/carbonledger/api/users/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
)

// HandlerConfig controls the session cookie.
type HandlerConfig struct {
	CookieName   string
	SecureCookie bool
}

// UserHandler handles all user-related HTTP requests
type UserHandler struct {
	service   services.UserService
	config    HandlerConfig
	recaptcha recaptcha.Verifier
}

func NewUserHandler(service services.UserService, config HandlerConfig) *UserHandler {
	if config.CookieName == "" {
		config.CookieName = "jwt"
	}
	return &UserHandler{service: service, config: config}
}

// WithRecaptcha makes Register require a verified recaptcha token.
func (h *UserHandler) WithRecaptcha(v recaptcha.Verifier) *UserHandler {
	h.recaptcha = v
	return h
}

func (h *UserHandler) setSessionCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     h.config.CookieName,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.config.SecureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func currentUser(c *fiber.Ctx) (types.UserContext, bool) {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	return user, ok
}

func idParam(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.FromString(c.Params("id"))
}

// Register creates an account and starts a session.
// Endpoint: POST /users
func (h *UserHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := validation.ParseAndValidate(c, &req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	if h.recaptcha != nil {
		ok, err := h.recaptcha.Verify(c.UserContext(), req.Recaptcha)
		if err != nil {
			log.Warn("recaptcha verification for %s: %v", req.Email, err)
		}
		if !ok {
			return errors.HandleServiceError(c, errors.ErrRecaptchaRejected)
		}
	}

	result, err := h.service.Register(c.UserContext(), &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}

	h.setSessionCookie(c, result.Token, result.ExpiresAt)
	return c.Status(http.StatusCreated).JSON(models.AuthResponse{User: result.User, AccessToken: result.Token})
}

// Login checks credentials and starts a session.
// Endpoint: POST /users/auth
func (h *UserHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := validation.ParseAndValidate(c, &req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	result, err := h.service.Login(c.UserContext(), &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}

	h.setSessionCookie(c, result.Token, result.ExpiresAt)
	return c.JSON(models.AuthResponse{User: result.User, AccessToken: result.Token})
}

// Logout revokes the presented session and clears the cookie.
// Endpoint: POST /users/logout
func (h *UserHandler) Logout(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apierror.HandleUserContextError(c)
	}
	expiresAt, _ := c.Locals(authjwt.ExpiresAtCtxName).(time.Time)

	if err := h.service.Logout(c.UserContext(), user.SessionID, expiresAt); err != nil {
		return errors.HandleServiceError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.config.CookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.config.SecureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.JSON(fiber.Map{"message": "logout successfully"})
}

// List returns one filtered page of users.
// Endpoint: GET /users?search=&start=&end=&column=&operator=&value=&page=&limit=
func (h *UserHandler) List(c *fiber.Ctx) error {
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

// Profile returns the caller's account.
// Endpoint: GET /users/profile
func (h *UserHandler) Profile(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apierror.HandleUserContextError(c)
	}

	result, err := h.service.Get(c.UserContext(), user.UserID)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(result)
}

// UpdateProfile edits the caller's account.
// Endpoint: PUT /users/profile
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apierror.HandleUserContextError(c)
	}

	var req models.UpdateProfileRequest
	if err := validation.ParseAndValidate(c, &req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	result, err := h.service.UpdateProfile(c.UserContext(), user.UserID, &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(result)
}

// UpdateCredentials changes the caller's username or password.
// Endpoint: PUT /users/credentials
func (h *UserHandler) UpdateCredentials(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apierror.HandleUserContextError(c)
	}

	var req models.CredentialsRequest
	if err := validation.ParseAndValidate(c, &req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	result, err := h.service.ChangeCredentials(c.UserContext(), user.UserID, &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"objectId": result.ObjectId, "username": result.Username})
}

// ToggleStatus flips a user between active and inactive. Without an id the
// caller's own account is toggled; toggling someone else needs admin rights.
// Endpoint: PUT /users/status/:id?
func (h *UserHandler) ToggleStatus(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apierror.HandleUserContextError(c)
	}

	target := user.UserID
	if c.Params("id") != "" {
		id, err := idParam(c)
		if err != nil {
			return apierror.HandleUUIDError(c, "id")
		}
		if id != user.UserID && !user.IsAdmin {
			return apierror.HandleForbidden(c, "Admin access required")
		}
		target = id
	}

	result, err := h.service.ToggleStatus(c.UserContext(), target)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(result)
}

// Get returns one user.
// Endpoint: GET /users/:id
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return apierror.HandleUUIDError(c, "id")
	}

	result, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(result)
}

// Update edits any user.
// Endpoint: PUT /users/:id
func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return apierror.HandleUUIDError(c, "id")
	}

	var req models.AdminUpdateRequest
	if err := validation.ParseAndValidate(c, &req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	result, err := h.service.AdminUpdate(c.UserContext(), id, &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(result)
}

// Delete removes a non-admin user.
// Endpoint: DELETE /users/:id
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return apierror.HandleUUIDError(c, "id")
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "user deleted"})
}
