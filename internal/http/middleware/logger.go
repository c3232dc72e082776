package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"docvault/internal/logging"
)

// Logger logs one structured entry per request with request_id, method, path,
// status, latency in milliseconds and the requester when one was identified.
func Logger(log logrus.FieldLogger) fiber.Handler {
	log = log.WithField("component", "http")

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		fields := logrus.Fields{
			"request_id": rid,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"latency":    float64(time.Since(start).Microseconds()) / 1000,
		}
		if r, ok := c.Locals(RequesterLocalKey).(Requester); ok && r.ID != "" {
			fields["requester"] = r.ID
		}

		entry := log.WithFields(fields)
		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			entry.Warn("request completed")
		} else {
			entry.Info("request completed")
		}
		return err
	}
}

// LoggerWithWriter is Logger writing JSON lines to w with timestamps in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(logging.NewWithWriter(w, "info", loc))
}
