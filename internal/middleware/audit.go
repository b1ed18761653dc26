package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit emits one structured log line per request. Flow routes carry the
// flow id; the dashboard carries the token's flow id.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		if reqID := RequestIDFrom(c); reqID != "" {
			attrs = append(attrs, slog.String("request_id", reqID))
		}
		if flowID := c.Params("flowId"); flowID != "" {
			attrs = append(attrs, slog.String("flow_id", flowID))
		} else if flowID, _ := c.Locals(LocalFlowID).(string); flowID != "" {
			attrs = append(attrs, slog.String("flow_id", flowID))
		}
		if err != nil {
			// The error handler has not written the status yet.
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request failed", attrs...)
			return err
		}

		logger.Info("request completed", attrs...)
		return nil
	}
}
