package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/parleyhq/parley-api/internal/service"
	"github.com/parleyhq/parley-api/internal/utils"
)

// SessionHandler opens and closes cipher sessions. Clients call start after
// sign-in and end on sign-out; message content written while a session is
// open can only be decrypted while its key is alive.
type SessionHandler struct {
	cipher service.CipherService
	logger zerolog.Logger
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(cipher service.CipherService, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		cipher: cipher,
		logger: logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register wires session routes under the provided router group.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Post("/start", h.start)
	router.Post("/end", h.end)
}

func (h *SessionHandler) start(c *fiber.Ctx) error {
	sessionID := sessionIDFromContext(c)
	if sessionID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "token carries no session id")
	}

	if err := h.cipher.StartSession(sessionID); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to start cipher session")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to start session")
	}

	return utils.SendSuccess(c, "session started", nil)
}

func (h *SessionHandler) end(c *fiber.Ctx) error {
	sessionID := sessionIDFromContext(c)
	if sessionID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "token carries no session id")
	}

	h.cipher.EndSession(sessionID)
	return utils.SendSuccess(c, "session ended", nil)
}
