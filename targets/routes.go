package targets

import (
	"github.com/carbonledger/api/internal/cache"
	"github.com/carbonledger/api/internal/middleware/authjwt"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/carbonledger/api/targets/handlers"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	TargetHandler *handlers.TargetHandler
}

func RegisterRoutes(router fiber.Router, h *Handlers, cfg *platformconfig.Config, revocations *cache.Revocations) {
	auth := authjwt.New(authjwt.Config{
		PublicKey:   cfg.JWT.PublicKey,
		CookieName:  cfg.JWT.CookieName,
		Revocations: revocations,
	})

	group := router.Group("/targets", auth)
	group.Get("/", h.TargetHandler.List)
	group.Post("/", h.TargetHandler.Create)
	group.Put("/", h.TargetHandler.Update)
	group.Delete("/:id", h.TargetHandler.Delete)
}
