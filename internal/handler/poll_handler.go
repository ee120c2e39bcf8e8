package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/parleyhq/parley-api/internal/dto"
	"github.com/parleyhq/parley-api/internal/service"
	"github.com/parleyhq/parley-api/internal/utils"
)

// PollHandler handles poll creation, voting and tally endpoints.
type PollHandler struct {
	service service.PollService
	logger  zerolog.Logger
}

// NewPollHandler constructs the handler.
func NewPollHandler(service service.PollService, logger zerolog.Logger) *PollHandler {
	return &PollHandler{
		service: service,
		logger:  logger.With().Str("component", "poll_handler").Logger(),
	}
}

// Register wires poll routes under the provided router group.
func (h *PollHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Post("/:id/vote", h.vote)
}

func (h *PollHandler) create(c *fiber.Ctx) error {
	var payload dto.PollCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	poll, err := h.service.Create(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "poll created", poll)
}

func (h *PollHandler) get(c *fiber.Ctx) error {
	poll, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendServiceError(c, err)
	}
	return utils.SendSuccess(c, "poll retrieved", poll)
}

func (h *PollHandler) vote(c *fiber.Ctx) error {
	var payload dto.VoteRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	pollID := c.Params("id")
	poll, err := h.service.Vote(c.UserContext(), pollID, userIDFromContext(c), payload.OptionIndex)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Str("poll_id", pollID).Msg("vote rejected")
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "vote recorded", poll)
}
