package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"

	// LocalRequestID holds the request identifier in fiber locals.
	LocalRequestID = "request_id"
)

// RequestID tags each relay request with an identifier, reusing the caller's
// X-Request-ID when present, and echoes it on the response.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Locals(LocalRequestID, id)
		return c.Next()
	}
}

// RequestIDOf returns the identifier assigned by RequestID, or "".
func RequestIDOf(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalRequestID).(string)
	return id
}
