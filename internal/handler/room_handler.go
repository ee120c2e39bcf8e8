package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/parleyhq/parley-api/internal/dto"
	"github.com/parleyhq/parley-api/internal/service"
	"github.com/parleyhq/parley-api/internal/utils"
)

// RoomHandler handles room lifecycle, membership and read-state endpoints.
type RoomHandler struct {
	service service.RoomService
	logger  zerolog.Logger
}

// NewRoomHandler constructs the handler.
func NewRoomHandler(service service.RoomService, logger zerolog.Logger) *RoomHandler {
	return &RoomHandler{
		service: service,
		logger:  logger.With().Str("component", "room_handler").Logger(),
	}
}

// Register wires room routes under the provided router group.
func (h *RoomHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Post("/:id/join", h.join)
	router.Post("/:id/leave", h.leave)
	router.Post("/:id/invite", h.invite)
	router.Post("/:id/pin", h.pin)
	router.Post("/:id/unpin", h.unpin)
	router.Post("/:id/read", h.markRead)
	router.Delete("/:id", h.remove)
}

func (h *RoomHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)

	rooms, err := h.service.ListForUser(c.UserContext(), userID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Str("user_id", userID).Msg("failed to list rooms")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "rooms retrieved", rooms)
}

func (h *RoomHandler) create(c *fiber.Ctx) error {
	var payload dto.RoomCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	room, err := h.service.Create(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "room created", room)
}

func (h *RoomHandler) join(c *fiber.Ctx) error {
	if err := h.service.Join(c.UserContext(), c.Params("id"), userIDFromContext(c)); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "room joined", nil)
}

func (h *RoomHandler) leave(c *fiber.Ctx) error {
	if err := h.service.Leave(c.UserContext(), c.Params("id"), userIDFromContext(c)); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "room left", nil)
}

func (h *RoomHandler) invite(c *fiber.Ctx) error {
	var payload dto.RoomInviteRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.Invite(c.UserContext(), c.Params("id"), payload.UserID, userIDFromContext(c)); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "user invited", nil)
}

func (h *RoomHandler) pin(c *fiber.Ctx) error {
	var payload dto.PinRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.Pin(c.UserContext(), c.Params("id"), payload.MessageID, userIDFromContext(c)); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "message pinned", nil)
}

func (h *RoomHandler) unpin(c *fiber.Ctx) error {
	var payload dto.UnpinRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.Unpin(c.UserContext(), c.Params("id"), payload.MessageID, userIDFromContext(c)); err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "message unpinned", nil)
}

func (h *RoomHandler) markRead(c *fiber.Ctx) error {
	var payload dto.MarkReadRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	err := h.service.MarkRead(c.UserContext(), c.Params("id"), userIDFromContext(c), payload.ClearMentions, payload.ClearReactions)
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "room marked read", nil)
}

func (h *RoomHandler) remove(c *fiber.Ctx) error {
	roomID := c.Params("id")
	if err := h.service.Delete(c.UserContext(), roomID, userIDFromContext(c)); err != nil {
		return sendServiceError(c, err)
	}

	requestLogger(h.logger, c).Info().Str("room_id", roomID).Msg("room deleted")
	return utils.SendSuccess(c, "room deleted", nil)
}
