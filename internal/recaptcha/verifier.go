package recaptcha

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultEndpoint is Google's token verification URL.
const DefaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

var ErrMissingSecret = errors.New("recaptcha secret key cannot be empty")

// Verifier checks a token submitted with a signup form.
type Verifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

type googleVerifier struct {
	secret   string
	endpoint string
	timeout  time.Duration
}

// NewGoogleVerifier returns a verifier for secret. An empty endpoint uses DefaultEndpoint.
func NewGoogleVerifier(secret, endpoint string) (Verifier, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &googleVerifier{secret: secret, endpoint: endpoint, timeout: 5 * time.Second}, nil
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *googleVerifier) Verify(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	timeout := v.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("secret", v.secret)
	args.Set("response", token)

	agent := fiber.Post(v.endpoint).Timeout(timeout).Form(args)
	if err := agent.Parse(); err != nil {
		return false, fmt.Errorf("recaptcha request: %w", err)
	}

	var resp siteVerifyResponse
	code, _, errs := agent.Struct(&resp)
	if len(errs) > 0 {
		return false, fmt.Errorf("recaptcha call: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return false, fmt.Errorf("recaptcha call: status %d", code)
	}
	return resp.Success, nil
}
