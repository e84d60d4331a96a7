package roles

import (
	"github.com/carbonledger/api/internal/cache"
	"github.com/carbonledger/api/internal/middleware/admin"
	"github.com/carbonledger/api/internal/middleware/authjwt"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/carbonledger/api/roles/handlers"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	RoleHandler *handlers.RoleHandler
}

// RegisterRoutes wires role endpoints. Reading roles needs a session; changing them needs admin.
func RegisterRoutes(router fiber.Router, h *Handlers, cfg *platformconfig.Config, revocations *cache.Revocations) {
	auth := authjwt.New(authjwt.Config{
		PublicKey:   cfg.JWT.PublicKey,
		CookieName:  cfg.JWT.CookieName,
		Revocations: revocations,
	})
	adminOnly := admin.New(admin.Config{})

	group := router.Group("/roles", auth)
	group.Get("/", h.RoleHandler.List)
	group.Post("/", adminOnly, h.RoleHandler.Create)
	group.Put("/:id", adminOnly, h.RoleHandler.Update)
	group.Delete("/:id", adminOnly, h.RoleHandler.Delete)
}
