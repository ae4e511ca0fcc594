package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// HTTPRecorder counts served requests.
type HTTPRecorder interface {
	HTTPRequest(method, route string, status int)
}

// Metrics reports each request to rec, labelled by the matched route
// pattern so path parameters do not explode label cardinality.
func Metrics(rec HTTPRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = errorStatus(err)
		}

		route := c.Route().Path
		if status == fiber.StatusNotFound && route != c.Path() {
			route = "unmatched"
		}
		rec.HTTPRequest(c.Method(), route, status)
		return err
	}
}
