package tasks

import (
	"github.com/carbonledger/api/internal/cache"
	"github.com/carbonledger/api/internal/middleware/authjwt"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/carbonledger/api/tasks/handlers"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	TaskHandler *handlers.TaskHandler
}

func RegisterRoutes(router fiber.Router, h *Handlers, cfg *platformconfig.Config, revocations *cache.Revocations) {
	auth := authjwt.New(authjwt.Config{
		PublicKey:   cfg.JWT.PublicKey,
		CookieName:  cfg.JWT.CookieName,
		Revocations: revocations,
	})

	group := router.Group("/tasks", auth)
	group.Get("/", h.TaskHandler.List)
	group.Get("/user/:userId", h.TaskHandler.ListForUser)
	group.Post("/", h.TaskHandler.Create)
	group.Put("/assign", h.TaskHandler.Assign)
	group.Put("/:id/complete", h.TaskHandler.Complete)
	group.Put("/:id", h.TaskHandler.Update)
	group.Delete("/:id", h.TaskHandler.Delete)
}
