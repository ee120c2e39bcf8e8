package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/parleyhq/parley-api/internal/dto"
	"github.com/parleyhq/parley-api/internal/service"
	"github.com/parleyhq/parley-api/internal/utils"
)

// MessageHandler handles send, edit, delete, reaction and listing endpoints
// for room messages.
type MessageHandler struct {
	service service.MessageService
	logger  zerolog.Logger
}

// NewMessageHandler constructs the handler.
func NewMessageHandler(service service.MessageService, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		service: service,
		logger:  logger.With().Str("component", "message_handler").Logger(),
	}
}

// Register wires message routes under the provided router group. Listing and
// search hang off the room id; mutations address the message directly.
func (h *MessageHandler) Register(router fiber.Router) {
	router.Get("/room/:roomID", h.list)
	router.Get("/room/:roomID/search", h.search)
	router.Post("/room/:roomID", h.send)
	router.Put("/:id", h.edit)
	router.Delete("/:id", h.remove)
	router.Post("/:id/reactions", h.addReaction)
	router.Delete("/:id/reactions", h.removeReaction)
}

func (h *MessageHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	messages, err := h.service.List(c.UserContext(), c.Params("roomID"), userIDFromContext(c), limit)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "messages retrieved", messages)
}

func (h *MessageHandler) search(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "q required")
	}

	messages, err := h.service.Search(c.UserContext(), c.Params("roomID"), userIDFromContext(c), query)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "messages retrieved", messages)
}

func (h *MessageHandler) send(c *fiber.Ctx) error {
	var payload dto.MessageSendRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	roomID := c.Params("roomID")
	message, err := h.service.Send(c.UserContext(), roomID, userIDFromContext(c), sessionIDFromContext(c), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Str("room_id", roomID).Msg("message rejected")
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *MessageHandler) edit(c *fiber.Ctx) error {
	var payload dto.MessageEditRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	message, err := h.service.Edit(c.UserContext(), c.Params("id"), userIDFromContext(c), sessionIDFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "message updated", message)
}

func (h *MessageHandler) remove(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id"), userIDFromContext(c)); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "message deleted", nil)
}

func (h *MessageHandler) addReaction(c *fiber.Ctx) error {
	var payload dto.ReactionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.AddReaction(c.UserContext(), c.Params("id"), userIDFromContext(c), payload.Emoji); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "reaction added", nil)
}

func (h *MessageHandler) removeReaction(c *fiber.Ctx) error {
	var payload dto.ReactionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.RemoveReaction(c.UserContext(), c.Params("id"), userIDFromContext(c), payload.Emoji); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "reaction removed", nil)
}
