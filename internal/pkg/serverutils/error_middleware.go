package serverutils

import (
	"visuallm-be/internal/pkg/logger"
	"visuallm-be/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is installed as fiber's ErrorHandler so errors escaping every
// middleware still get the structured body.
func ErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		status, body := ErrorResponseFor(err)
		if body.Error.Kind == apperr.KindInternal {
			log.Error("HTTP", "Request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"error":  err.Error(),
			})
		}
		return ctx.Status(status).JSON(body)
	}
}

// ErrorHandlerMiddleware turns handler errors into the structured body before the
// response leaves the middleware chain.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	handle := ErrorHandler(log)
	return func(ctx *fiber.Ctx) error {
		if err := ctx.Next(); err != nil {
			return handle(ctx, err)
		}
		return nil
	}
}
