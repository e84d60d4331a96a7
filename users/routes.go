package users

import (
	"github.com/carbonledger/api/internal/cache"
	"github.com/carbonledger/api/internal/middleware/admin"
	"github.com/carbonledger/api/internal/middleware/authjwt"
	"github.com/carbonledger/api/internal/middleware/ratelimit"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/carbonledger/api/users/handlers"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	UserHandler *handlers.UserHandler
}

// RegisterRoutes wires user endpoints under router.
func RegisterRoutes(router fiber.Router, h *Handlers, cfg *platformconfig.Config, revocations *cache.Revocations) {
	auth := authjwt.New(authjwt.Config{
		PublicKey:   cfg.JWT.PublicKey,
		CookieName:  cfg.JWT.CookieName,
		Revocations: revocations,
	})
	adminOnly := admin.New(admin.Config{})

	group := router.Group("/users")

	// Public
	group.Post("/", ratelimit.NewSignupLimiter(&cfg.RateLimits), h.UserHandler.Register)
	group.Post("/auth", ratelimit.NewLoginLimiter(&cfg.RateLimits), h.UserHandler.Login)

	// Caller
	group.Post("/logout", auth, h.UserHandler.Logout)
	group.Get("/profile", auth, h.UserHandler.Profile)
	group.Put("/profile", auth, h.UserHandler.UpdateProfile)
	group.Put("/credentials", auth, h.UserHandler.UpdateCredentials)
	group.Put("/status/:id?", auth, h.UserHandler.ToggleStatus)

	// Admin
	group.Get("/", auth, adminOnly, h.UserHandler.List)
	group.Get("/:id", auth, adminOnly, h.UserHandler.Get)
	group.Put("/:id", auth, adminOnly, h.UserHandler.Update)
	group.Delete("/:id", auth, adminOnly, h.UserHandler.Delete)
}
