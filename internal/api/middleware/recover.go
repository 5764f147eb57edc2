package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

// Recover turns a handler panic into ErrInternal so the app's ErrorHandler
// renders it like any other failure. The stack is logged, never returned.
func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			requestID, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
			logger.Error("handler panicked",
				slog.Any("panic", r),
				slog.String("request_id", requestID),
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("stack", string(debug.Stack())),
			)
			err = domain.ErrInternal.WithError(fmt.Errorf("panic: %v", r))
		}()
		return c.Next()
	}
}
