package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"leakbox/internal/dto"
)

// HeaderName carries the shared moderation secret on privileged requests.
const HeaderName = "X-Report-Pwd"

// Gate validates the single shared secret that authorizes submission and
// moderation. The secret is fixed at construction and never mutated.
type Gate struct {
	secret []byte
}

func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// Authorize compares the supplied token against the configured secret in
// constant time. Missing or empty tokens are always rejected.
func (g *Gate) Authorize(token string) bool {
	if token == "" || len(g.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), g.secret) == 1
}

// Require is a Fiber middleware that rejects requests whose X-Report-Pwd
// header does not match the secret. It runs before any validation or
// storage access.
func (g *Gate) Require() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !g.Authorize(c.Get(HeaderName)) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid or missing report password",
			})
		}
		return c.Next()
	}
}
