package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley-api/internal/models"
	"github.com/parleyhq/parley-api/internal/repository"
	"github.com/parleyhq/parley-api/internal/store"
)

const (
	testFounderID  = "founder-1"
	testObserverID = "observer-1"
)

// testEnv wires the full service stack over a miniredis-backed store so
// tests exercise the real repositories and key layout.
type testEnv struct {
	users      repository.UserRepository
	rooms      repository.RoomRepository
	messages   repository.MessageRepository
	polls      repository.PollRepository
	channels   repository.DirectChannelRepository
	moderation ModerationService
	roomSvc    RoomService
	messageSvc MessageService
	pollSvc    PollService
	dmSvc      DMService
	cipher     CipherService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	kv := store.NewRedisStore(client)
	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.Nop()
	events := NewEventPublisher(nil, logger)

	users := repository.NewUserRepository(kv)
	rooms := repository.NewRoomRepository(kv)
	messages := repository.NewMessageRepository(kv)
	polls := repository.NewPollRepository(kv)
	channels := repository.NewDirectChannelRepository(kv)

	moderation := NewModerationService(users, rooms, messages, events, testFounderID, logger)
	roomSvc := NewRoomService(rooms, messages, moderation, validate, events, testObserverID, logger)
	cipher := NewCipherService(logger)
	messageSvc := NewMessageService(messages, users, polls, roomSvc, moderation, cipher, validate, events, 100, logger)
	pollSvc := NewPollService(polls, messages, users, roomSvc, moderation, validate, logger)
	messageSvc.SetPollDelegate(pollSvc)
	dmSvc := NewDMService(channels, messages, users, moderation, cipher, validate, events, 100, logger)

	return &testEnv{
		users:      users,
		rooms:      rooms,
		messages:   messages,
		polls:      polls,
		channels:   channels,
		moderation: moderation,
		roomSvc:    roomSvc,
		messageSvc: messageSvc,
		pollSvc:    pollSvc,
		dmSvc:      dmSvc,
		cipher:     cipher,
	}
}

func (e *testEnv) seedUser(t *testing.T, id, username string, role models.Role) models.User {
	t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:          id,
		Username:    username,
		DisplayName: username,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, e.users.Save(context.Background(), &user))
	return user
}

func (e *testEnv) seedRoom(t *testing.T, id, ownerID string, kind models.RoomKind, members ...string) models.Room {
	t.Helper()

	now := time.Now().UTC()
	room := models.Room{
		ID:           id,
		Name:         id,
		Kind:         kind,
		OwnerID:      ownerID,
		Members:      members,
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.rooms.Save(context.Background(), &room))
	return room
}
