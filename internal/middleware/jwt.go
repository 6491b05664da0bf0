package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saldo-app/saldo/internal/dataservice"
)

// Locals keys set by RequireSession.
const (
	LocalUserID  = "user_id"
	LocalSession = "session"
)

// RequireSession validates the bearer access token with the auth backend and
// stores the resolved session in the request locals.
func RequireSession(verifier dataservice.TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		session, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		c.Locals(LocalUserID, session.User.ID)
		c.Locals(LocalSession, session)
		return c.Next()
	}
}
