package emissions

import (
	"github.com/carbonledger/api/emissions/handlers"
	"github.com/carbonledger/api/internal/cache"
	"github.com/carbonledger/api/internal/middleware/authjwt"
	"github.com/carbonledger/api/internal/middleware/ratelimit"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	EmissionHandler *handlers.EmissionHandler
}

// RegisterRoutes wires emission endpoints. Every route needs a session.
func RegisterRoutes(router fiber.Router, h *Handlers, cfg *platformconfig.Config, revocations *cache.Revocations) {
	auth := authjwt.New(authjwt.Config{
		PublicKey:   cfg.JWT.PublicKey,
		CookieName:  cfg.JWT.CookieName,
		Revocations: revocations,
	})

	group := router.Group("/emissions", auth)
	group.Get("/", h.EmissionHandler.List)
	group.Post("/", h.EmissionHandler.Create)
	group.Post("/batch", h.EmissionHandler.Batch)
	group.Post("/upload", ratelimit.NewUploadLimiter(&cfg.RateLimits), h.EmissionHandler.Upload)
	group.Post("/generate", h.EmissionHandler.Generate)
	group.Put("/:id", h.EmissionHandler.Update)
	group.Delete("/:id", h.EmissionHandler.Delete)
}
