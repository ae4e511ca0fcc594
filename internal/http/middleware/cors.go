package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

var (
	corsMethods = strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ", ")
	corsHeaders = "Origin, Content-Type, Accept, " + RequestIDHeader
	// Content-Disposition carries the export filename to the browser form.
	corsExposed = "Content-Length, Content-Type, Content-Disposition, " + RequestIDHeader
)

// CORS allows the report form to call the API from any origin.
func CORS() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		c.Set(fiber.HeaderAccessControlAllowMethods, corsMethods)
		c.Set(fiber.HeaderAccessControlAllowHeaders, corsHeaders)
		c.Set(fiber.HeaderAccessControlExposeHeaders, corsExposed)
		c.Set(fiber.HeaderAccessControlMaxAge, "86400")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}
