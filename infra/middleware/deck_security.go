package middleware

import (
	"strings"

	"taskdeck/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// SecurityHeaders adds security headers for a JSON-only API.
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "no-referrer")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		return c.Next()
	}
}

// NoCache marks responses as uncacheable. Session state changes on every
// mutation and sync message.
func NoCache() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Set("Pragma", "no-cache")
		c.Set("Expires", "0")
		return c.Next()
	}
}

// RequireJSON rejects POST/PUT/PATCH bodies that are not application/json.
func RequireJSON() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
		default:
			return c.Next()
		}
		if len(c.Body()) == 0 {
			return c.Next()
		}

		contentType := c.Get(fiber.HeaderContentType)
		if contentType == "" {
			return apperr.BadRequest("content-type header required")
		}
		if !strings.HasPrefix(strings.ToLower(contentType), fiber.MIMEApplicationJSON) {
			return apperr.New(apperr.CodeBadRequest, "unsupported content type", fiber.StatusUnsupportedMediaType)
		}
		return c.Next()
	}
}
