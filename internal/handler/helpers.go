package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/parleyhq/parley-api/internal/middleware"
	"github.com/parleyhq/parley-api/internal/utils"
	"github.com/parleyhq/parley-api/pkg/apperrors"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func userIDFromContext(c *fiber.Ctx) string {
	if v, ok := c.Locals("user_id").(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func sessionIDFromContext(c *fiber.Ctx) string {
	if v, ok := c.Locals("session_id").(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// sendServiceError maps service-layer failures onto the shared response
// envelope. Validation failures short-circuit to 400; everything else goes
// through the error-code table.
func sendServiceError(c *fiber.Ctx, err error) error {
	if isValidationError(err) {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	status := apperrors.HTTPStatus(err)

	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status == fiber.StatusInternalServerError {
		message = "internal error"
	}

	return utils.SendError(c, status, message)
}
