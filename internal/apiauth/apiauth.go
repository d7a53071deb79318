// Package apiauth checks the demo HTTP surface's X-API-Key header
// against a bcrypt hash, adapted from the teacher's auth.AuthService
// (internal/auth/auth.go) — same bcrypt-backed API-key idea, but
// generalized away from a Postgres-backed client table (no SQL store is
// specified here) to a single operator-configured key hash, since
// spec.md's job engine has no concept of per-client billing.
package apiauth

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// HashAPIKey produces the bcrypt hash an operator stores in
// config.Config.APIKeyHash.
func HashAPIKey(apiKey string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("apiauth: hash API key: %w", err)
	}
	return string(hashed), nil
}

// Verifier checks a presented API key against a configured hash.
type Verifier struct {
	hash string
}

// NewVerifier builds a Verifier around a bcrypt hash produced by
// HashAPIKey. A Verifier with an empty hash rejects every key.
func NewVerifier(hash string) *Verifier {
	return &Verifier{hash: hash}
}

// Verify reports whether apiKey matches the configured hash.
func (v *Verifier) Verify(apiKey string) bool {
	if v.hash == "" || apiKey == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(v.hash), []byte(apiKey)) == nil
}

// Middleware is the Fiber handler cmd/apiserver installs on the submit,
// status, and cancel routes.
func (v *Verifier) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get("X-API-Key")
		if !v.Verify(apiKey) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid API key"})
		}
		return c.Next()
	}
}
