package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saldo-app/saldo/internal/relay"
)

// RegisterAuthRoutes wires the login and signup relay endpoints.
func RegisterAuthRoutes(r fiber.Router, h *relay.Handler, rateLimiter, idempotency fiber.Handler) {
	if rateLimiter != nil {
		r.Post("/login", rateLimiter, h.Login)
	} else {
		r.Post("/login", h.Login)
	}
	if idempotency != nil {
		r.Post("/signup", idempotency, h.Signup)
	} else {
		r.Post("/signup", h.Signup)
	}
}

// RegisterProfileRoutes wires endpoints that need a valid access token.
func RegisterProfileRoutes(r fiber.Router, h *relay.Handler, requireSession fiber.Handler) {
	r.Get("/me", requireSession, h.Me)
}
