package notifications

import (
	"github.com/carbonledger/api/internal/cache"
	"github.com/carbonledger/api/internal/middleware/authjwt"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/carbonledger/api/notifications/handlers"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	NotificationHandler *handlers.NotificationHandler
}

func RegisterRoutes(router fiber.Router, h *Handlers, cfg *platformconfig.Config, revocations *cache.Revocations) {
	auth := authjwt.New(authjwt.Config{
		PublicKey:   cfg.JWT.PublicKey,
		CookieName:  cfg.JWT.CookieName,
		Revocations: revocations,
	})

	router.Get("/notifications", auth, h.NotificationHandler.List)
}
