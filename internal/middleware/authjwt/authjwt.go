package authjwt

import (
	"strings"

	"github.com/carbonledger/api/internal/auth/tokens"
	"github.com/carbonledger/api/internal/cache"
	"github.com/carbonledger/api/internal/pkg/log"
	"github.com/carbonledger/api/internal/types"
	"github.com/gofiber/fiber/v2"
)

// Config defines the config for the JWT middleware.
type Config struct {
	// The EC public key for validating ES256 tokens.
	PublicKey string
	// Cookie read when no Authorization header is sent.
	CookieName string
	// The context key to store the UserContext.
	UserCtxName string
	// Optional denylist of logged-out sessions.
	Revocations *cache.Revocations
}

// ExpiresAtCtxName is the Locals key holding the token expiry, used by logout.
const ExpiresAtCtxName = "token_expires_at"

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"code":    "UNAUTHORIZED",
		"message": message,
	})
}

// New creates a new middleware handler.
func New(cfg Config) fiber.Handler {
	// Parse the key once on startup.
	verifier, err := tokens.NewVerifier(cfg.PublicKey)
	if err != nil {
		panic(err.Error())
	}
	userKey := cfg.UserCtxName
	if userKey == "" {
		userKey = types.UserCtxName
	}
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "jwt"
	}

	return func(c *fiber.Ctx) error {
		tokenString := ExtractToken(c, cookieName)
		if tokenString == "" {
			return unauthorized(c, "Missing or invalid JWT")
		}

		user, expiresAt, err := verifier.Verify(tokenString)
		if err != nil {
			return unauthorized(c, "Invalid token")
		}

		if cfg.Revocations != nil {
			revoked, err := cfg.Revocations.IsRevoked(c.UserContext(), user.SessionID)
			if err != nil {
				// Fail closed.
				log.WarnWithContext(c.UserContext(), "session check failed for user %s: %v", user.UserID, err)
				return unauthorized(c, "Session validation failed. Please log in again.")
			}
			if revoked {
				return unauthorized(c, "Session has been invalidated.")
			}
		}

		c.Locals(userKey, user)
		c.Locals(ExpiresAtCtxName, expiresAt)
		return c.Next()
	}
}

// ExtractToken reads the bearer token, falling back to the session cookie.
func ExtractToken(c *fiber.Ctx, cookieName string) string {
	authHeader := c.Get(types.HeaderAuthorization)
	if strings.HasPrefix(authHeader, types.BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, types.BearerPrefix))
	}
	return c.Cookies(cookieName)
}
