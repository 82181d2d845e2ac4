package serverutils

import (
	"errors"

	"owlynn-be/internal/pkg/apperror"
	"owlynn-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error to the HTTP status it is reported with.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch apperror.KindOf(err) {
	case apperror.KindValidation, apperror.KindUnsupportedFileType:
		return fiber.StatusBadRequest
	case apperror.KindFileTooLarge:
		return fiber.StatusRequestEntityTooLarge
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindStoreConnectionFailure, apperror.KindModelInvocationFailure:
		return fiber.StatusServiceUnavailable
	case apperror.KindConversionFailure:
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// NewErrorHandler returns the fiber ErrorHandler. Every error leaves as
// {success:false, code, message}; server side failures are logged.
func NewErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		code := StatusFor(err)
		if code >= fiber.StatusInternalServerError && log != nil {
			log.Error("Server", "Request failed", map[string]interface{}{
				"method": ctx.Method(),
				"path":   ctx.Path(),
				"status": code,
				"error":  err.Error(),
			})
		}
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}
