package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/parleyhq/parley-api/internal/dto"
	"github.com/parleyhq/parley-api/internal/service"
	"github.com/parleyhq/parley-api/internal/utils"
)

// DMHandler handles direct-channel endpoints.
type DMHandler struct {
	service service.DMService
	logger  zerolog.Logger
}

// NewDMHandler constructs the handler.
func NewDMHandler(service service.DMService, logger zerolog.Logger) *DMHandler {
	return &DMHandler{
		service: service,
		logger:  logger.With().Str("component", "dm_handler").Logger(),
	}
}

// Register wires direct-channel routes under the provided router group.
func (h *DMHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.open)
	router.Get("/:id/messages", h.listMessages)
	router.Post("/:id/messages", h.send)
	router.Post("/:id/read", h.markRead)
	router.Delete("/:id", h.hide)
}

func (h *DMHandler) list(c *fiber.Ctx) error {
	channels, err := h.service.List(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "channels retrieved", channels)
}

func (h *DMHandler) open(c *fiber.Ctx) error {
	var payload dto.DMCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	channel, err := h.service.GetOrCreate(c.UserContext(), userIDFromContext(c), payload.UserID)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "channel ready", channel)
}

func (h *DMHandler) listMessages(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	messages, err := h.service.ListMessages(c.UserContext(), c.Params("id"), userIDFromContext(c), limit)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "messages retrieved", messages)
}

func (h *DMHandler) send(c *fiber.Ctx) error {
	var payload dto.DMSendRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	dmID := c.Params("id")
	message, err := h.service.Send(c.UserContext(), dmID, userIDFromContext(c), sessionIDFromContext(c), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Str("dm_id", dmID).Msg("direct message rejected")
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *DMHandler) markRead(c *fiber.Ctx) error {
	if err := h.service.MarkRead(c.UserContext(), c.Params("id"), userIDFromContext(c)); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "channel marked read", nil)
}

func (h *DMHandler) hide(c *fiber.Ctx) error {
	if err := h.service.Hide(c.UserContext(), c.Params("id"), userIDFromContext(c)); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "channel hidden", nil)
}
