// Package ratelimit provides per-IP rate limiting for login, signup and upload endpoints.
package ratelimit

import (
	"fmt"
	"time"

	"github.com/carbonledger/api/internal/pkg/log"
	platformconfig "github.com/carbonledger/api/internal/platform/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// EndpointType represents the endpoints that carry a rate limit
type EndpointType int

const (
	EndpointLogin EndpointType = iota
	EndpointSignup
	EndpointUpload
)

func (e EndpointType) String() string {
	switch e {
	case EndpointLogin:
		return "login"
	case EndpointSignup:
		return "signup"
	case EndpointUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// DefaultEndpointLimits returns the limits used when no configuration is given.
func DefaultEndpointLimits() platformconfig.RateLimitsConfig {
	return platformconfig.RateLimitsConfig{
		Login:  platformconfig.RateLimitConfig{Enabled: true, Max: 5, Duration: 15 * time.Minute},
		Signup: platformconfig.RateLimitConfig{Enabled: true, Max: 10, Duration: time.Hour},
		Upload: platformconfig.RateLimitConfig{Enabled: true, Max: 20, Duration: time.Hour},
	}
}

// Config holds the configuration for rate limiting middleware
type Config struct {
	EndpointType EndpointType

	// Limits defaults to DefaultEndpointLimits when nil.
	Limits *platformconfig.RateLimitsConfig

	// Next defines a function to skip this middleware when returned true
	Next func(c *fiber.Ctx) bool

	// KeyGenerator defaults to client IP plus path.
	KeyGenerator func(c *fiber.Ctx) string
}

func limitFor(endpoint EndpointType, limits platformconfig.RateLimitsConfig) platformconfig.RateLimitConfig {
	switch endpoint {
	case EndpointLogin:
		return limits.Login
	case EndpointSignup:
		return limits.Signup
	case EndpointUpload:
		return limits.Upload
	default:
		return platformconfig.RateLimitConfig{Enabled: true, Max: 5, Duration: 15 * time.Minute}
	}
}

// New creates a new rate limiting middleware handler. A disabled limit passes every request through.
func New(config Config) fiber.Handler {
	limits := DefaultEndpointLimits()
	if config.Limits != nil {
		limits = *config.Limits
	}
	limit := limitFor(config.EndpointType, limits)
	if !limit.Enabled || limit.Max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	keyGenerator := config.KeyGenerator
	if keyGenerator == nil {
		keyGenerator = func(c *fiber.Ctx) string {
			return c.IP() + ":" + c.Path()
		}
	}
	endpointName := config.EndpointType.String()

	return limiter.New(limiter.Config{
		Max:          limit.Max,
		Expiration:   limit.Duration,
		KeyGenerator: keyGenerator,
		Next:         config.Next,
		LimitReached: func(c *fiber.Ctx) error {
			log.WarnWithContext(c.UserContext(), "[RateLimit] Rate limit exceeded for %s from IP: %s", endpointName, c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":      "Rate limit exceeded",
				"code":       "RATE_LIMIT_EXCEEDED",
				"message":    fmt.Sprintf("Too many %s attempts. Please try again later.", endpointName),
				"retryAfter": int(limit.Duration.Seconds()),
			})
		},
	})
}

// NewLoginLimiter creates a rate limiter for the login endpoint
func NewLoginLimiter(limits *platformconfig.RateLimitsConfig) fiber.Handler {
	return New(Config{EndpointType: EndpointLogin, Limits: limits})
}

// NewSignupLimiter creates a rate limiter for registration
func NewSignupLimiter(limits *platformconfig.RateLimitsConfig) fiber.Handler {
	return New(Config{EndpointType: EndpointSignup, Limits: limits})
}

// NewUploadLimiter creates a rate limiter for batch and CSV ingestion
func NewUploadLimiter(limits *platformconfig.RateLimitsConfig) fiber.Handler {
	return New(Config{EndpointType: EndpointUpload, Limits: limits})
}
