package requestid

import (
	"github.com/carbonledger/api/internal/pkg/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	localsKey       = "request_id"
)

// New echoes the caller's X-Request-ID or assigns a fresh UUID, and carries it
// on c.UserContext() so the *WithContext loggers tag every line of the request.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.Must(uuid.NewV4()).String()
		}
		c.Locals(localsKey, id)
		c.SetUserContext(log.WithRequestID(c.UserContext(), id))
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}

// FromCtx returns the id assigned by New, or "" outside the middleware.
func FromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(localsKey).(string)
	return id
}
