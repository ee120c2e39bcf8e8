package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/parleyhq/parley-api/internal/config"
	"github.com/parleyhq/parley-api/internal/database"
	"github.com/parleyhq/parley-api/internal/handler"
	"github.com/parleyhq/parley-api/internal/middleware"
	"github.com/parleyhq/parley-api/internal/repository"
	"github.com/parleyhq/parley-api/internal/router"
	"github.com/parleyhq/parley-api/internal/service"
	"github.com/parleyhq/parley-api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	kv, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer kv.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(kv)
	roomRepo := repository.NewRoomRepository(kv)
	messageRepo := repository.NewMessageRepository(kv)
	pollRepo := repository.NewPollRepository(kv)
	channelRepo := repository.NewDirectChannelRepository(kv)

	events := service.NewEventPublisher(natsConn, logger)
	cipher := service.NewCipherService(logger)

	moderationService := service.NewModerationService(userRepo, roomRepo, messageRepo, events, cfg.FounderUserID, logger)
	roomService := service.NewRoomService(roomRepo, messageRepo, moderationService, validate, events, cfg.ObserverUserID, logger)
	messageService := service.NewMessageService(messageRepo, userRepo, pollRepo, roomService, moderationService, cipher, validate, events, cfg.MessagePageMax, logger)
	pollService := service.NewPollService(pollRepo, messageRepo, userRepo, roomService, moderationService, validate, logger)
	messageService.SetPollDelegate(pollService)
	dmService := service.NewDMService(channelRepo, messageRepo, userRepo, moderationService, cipher, validate, events, cfg.MessagePageMax, logger)

	if _, err := moderationService.EnsureQuarantineRoom(context.Background()); err != nil {
		log.Fatalf("failed to ensure quarantine room: %v", err)
	}

	roomHandler := handler.NewRoomHandler(roomService, logger)
	messageHandler := handler.NewMessageHandler(messageService, logger)
	pollHandler := handler.NewPollHandler(pollService, logger)
	dmHandler := handler.NewDMHandler(dmService, logger)
	moderationHandler := handler.NewModerationHandler(moderationService, logger)
	sessionHandler := handler.NewSessionHandler(cipher, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		RoomHandler:       roomHandler,
		MessageHandler:    messageHandler,
		PollHandler:       pollHandler,
		DMHandler:         dmHandler,
		ModerationHandler: moderationHandler,
		SessionHandler:    sessionHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func openStore(cfg config.Config) (store.KV, error) {
	switch cfg.StoreBackend {
	case "pebble":
		return store.OpenPebble(cfg.PebblePath)
	default:
		client, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(client), nil
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
