package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/LinkGate/internal/metrics"
)

// Metrics records request count, latency and in-flight requests by route pattern.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		// The route pattern keeps label cardinality bounded; unmatched paths share one label.
		route := c.Route().Path
		if route == "" || (route == "/" && c.Path() != "/") {
			route = "unmatched"
		}
		metrics.RecordHTTP(c.Method(), route, strconv.Itoa(status), time.Since(start))
		return err
	}
}
