package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/parleyhq/parley-api/internal/config"
	"github.com/parleyhq/parley-api/internal/handler"
	"github.com/parleyhq/parley-api/internal/middleware"
	"github.com/parleyhq/parley-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	RoomHandler       *handler.RoomHandler
	MessageHandler    *handler.MessageHandler
	PollHandler       *handler.PollHandler
	DMHandler         *handler.DMHandler
	ModerationHandler *handler.ModerationHandler
	SessionHandler    *handler.SessionHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SessionHandler != nil {
		sessions := api.Group("/sessions", jwtMiddleware)
		deps.SessionHandler.Register(sessions)
	}

	if deps.RoomHandler != nil {
		rooms := api.Group("/rooms", jwtMiddleware)
		deps.RoomHandler.Register(rooms)
	}

	if deps.MessageHandler != nil {
		messages := api.Group("/messages", jwtMiddleware)
		// Sends are rate limited per user; reads are not.
		sendLimiter := middleware.RateLimit("message_send", cfg.SendRateLimit, cfg.SendRateWindow)
		messages.Use("/room/:roomID", func(c *fiber.Ctx) error {
			if c.Method() != fiber.MethodPost {
				return c.Next()
			}
			return sendLimiter(c)
		})
		deps.MessageHandler.Register(messages)
	}

	if deps.PollHandler != nil {
		polls := api.Group("/polls", jwtMiddleware)
		deps.PollHandler.Register(polls)
	}

	if deps.DMHandler != nil {
		dms := api.Group("/dms", jwtMiddleware)
		dmLimiter := middleware.RateLimit("dm_send", cfg.SendRateLimit, cfg.SendRateWindow)
		dms.Use("/:id/messages", func(c *fiber.Ctx) error {
			if c.Method() != fiber.MethodPost {
				return c.Next()
			}
			return dmLimiter(c)
		})
		deps.DMHandler.Register(dms)
	}

	if deps.ModerationHandler != nil {
		users := api.Group("/users", jwtMiddleware)
		deps.ModerationHandler.RegisterUser(users)

		moderation := api.Group("/moderation", jwtMiddleware, middleware.RequireRole("admin", "moderator"))
		deps.ModerationHandler.Register(moderation)
	}
}
