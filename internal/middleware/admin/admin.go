package admin

import (
	"github.com/carbonledger/api/internal/types"
	"github.com/carbonledger/api/shared/apierror"
	"github.com/gofiber/fiber/v2"
)

type Config struct {
	// Allow decides access for the authenticated caller. Defaults to the admin flag.
	Allow func(types.UserContext) bool
}

// New guards routes mounted after authjwt.
func New(cfg Config) fiber.Handler {
	allow := cfg.Allow
	if allow == nil {
		allow = func(u types.UserContext) bool { return u.IsAdmin }
	}
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals(types.UserCtxName).(types.UserContext)
		switch {
		case !ok:
			return apierror.HandleUserContextError(c)
		case !allow(user):
			return apierror.HandleForbidden(c, "Admin access required")
		}
		return c.Next()
	}
}
