package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/parleyhq/parley-api/internal/dto"
	"github.com/parleyhq/parley-api/internal/models"
	"github.com/parleyhq/parley-api/internal/service"
	"github.com/parleyhq/parley-api/internal/utils"
)

// ModerationHandler handles staff moderation endpoints plus the user-level
// block list.
type ModerationHandler struct {
	service service.ModerationService
	logger  zerolog.Logger
}

// NewModerationHandler constructs the handler.
func NewModerationHandler(service service.ModerationService, logger zerolog.Logger) *ModerationHandler {
	return &ModerationHandler{
		service: service,
		logger:  logger.With().Str("component", "moderation_handler").Logger(),
	}
}

// Register wires staff-only moderation routes. The group is expected to sit
// behind a role check for admins and moderators.
func (h *ModerationHandler) Register(router fiber.Router) {
	router.Post("/ban", h.ban)
	router.Post("/unban", h.unban)
	router.Post("/mute", h.mute)
	router.Post("/unmute", h.unmute)
	router.Post("/role", h.setRole)
	router.Post("/purge", h.purge)
}

// RegisterUser wires the self-service block endpoints available to any
// authenticated user.
func (h *ModerationHandler) RegisterUser(router fiber.Router) {
	router.Post("/block", h.block)
	router.Post("/unblock", h.unblock)
}

func (h *ModerationHandler) ban(c *fiber.Ctx) error {
	var payload dto.BanRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.Ban(c.UserContext(), payload.UserID, userIDFromContext(c), payload.Hours); err != nil {
		return sendServiceError(c, err)
	}

	requestLogger(h.logger, c).Info().Str("target_id", payload.UserID).Int("hours", payload.Hours).Msg("user banned")
	return utils.SendSuccess(c, "user banned", nil)
}

func (h *ModerationHandler) unban(c *fiber.Ctx) error {
	var payload dto.UserTargetRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.Unban(c.UserContext(), payload.UserID, userIDFromContext(c)); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "user unbanned", nil)
}

func (h *ModerationHandler) mute(c *fiber.Ctx) error {
	var payload dto.MuteRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.Mute(c.UserContext(), payload.UserID, userIDFromContext(c), payload.Hours); err != nil {
		return sendServiceError(c, err)
	}

	requestLogger(h.logger, c).Info().Str("target_id", payload.UserID).Int("hours", payload.Hours).Msg("user muted")
	return utils.SendSuccess(c, "user muted", nil)
}

func (h *ModerationHandler) unmute(c *fiber.Ctx) error {
	var payload dto.UserTargetRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.Unmute(c.UserContext(), payload.UserID, userIDFromContext(c)); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "user unmuted", nil)
}

func (h *ModerationHandler) setRole(c *fiber.Ctx) error {
	var payload dto.RoleChangeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.SetRole(c.UserContext(), payload.UserID, models.Role(payload.Role), userIDFromContext(c)); err != nil {
		return sendServiceError(c, err)
	}

	requestLogger(h.logger, c).Info().Str("target_id", payload.UserID).Str("role", payload.Role).Msg("role changed")
	return utils.SendSuccess(c, "role updated", nil)
}

func (h *ModerationHandler) purge(c *fiber.Ctx) error {
	var payload dto.UserTargetRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.PurgeUser(c.UserContext(), payload.UserID, userIDFromContext(c)); err != nil {
		return sendServiceError(c, err)
	}

	requestLogger(h.logger, c).Info().Str("target_id", payload.UserID).Msg("user purged")
	return utils.SendSuccess(c, "user purged", nil)
}

func (h *ModerationHandler) block(c *fiber.Ctx) error {
	var payload dto.UserTargetRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.Block(c.UserContext(), userIDFromContext(c), payload.UserID); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "user blocked", nil)
}

func (h *ModerationHandler) unblock(c *fiber.Ctx) error {
	var payload dto.UserTargetRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.Unblock(c.UserContext(), userIDFromContext(c), payload.UserID); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "user unblocked", nil)
}
