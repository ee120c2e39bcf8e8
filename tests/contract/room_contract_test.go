package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley-api/internal/dto"
	"github.com/parleyhq/parley-api/internal/handler"
	"github.com/parleyhq/parley-api/internal/models"
)

type stubRoomService struct {
	rooms []dto.RoomResponse
}

func (s stubRoomService) Create(context.Context, string, dto.RoomCreateRequest) (dto.RoomResponse, error) {
	return dto.RoomResponse{}, nil
}

func (s stubRoomService) Join(context.Context, string, string) error   { return nil }
func (s stubRoomService) Leave(context.Context, string, string) error  { return nil }
func (s stubRoomService) Invite(context.Context, string, string, string) error {
	return nil
}
func (s stubRoomService) Pin(context.Context, string, string, string) error   { return nil }
func (s stubRoomService) Unpin(context.Context, string, string, string) error { return nil }
func (s stubRoomService) Delete(context.Context, string, string) error        { return nil }

func (s stubRoomService) MarkRead(context.Context, string, string, bool, bool) error {
	return nil
}

func (s stubRoomService) ListForUser(context.Context, string) ([]dto.RoomResponse, error) {
	return s.rooms, nil
}

func (s stubRoomService) EnsureFavoritesRoom(context.Context, string) (models.Room, error) {
	return models.Room{}, nil
}

func (s stubRoomService) RoomForSend(context.Context, string, string) (models.Room, error) {
	return models.Room{}, nil
}

func (s stubRoomService) RoomForView(context.Context, string, string) (models.Room, error) {
	return models.Room{}, nil
}

func (s stubRoomService) ApplyMessagePosted(context.Context, string, string, []string, string) error {
	return nil
}

func (s stubRoomService) ApplyReaction(context.Context, string, string, string) error {
	return nil
}

func TestRoomListContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "room.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	now := time.Now().UTC()
	rooms := []dto.RoomResponse{
		{
			ID:              "room-1",
			Name:            "general",
			Kind:            "public",
			OwnerID:         "u1",
			Members:         []string{"u1", "u2"},
			PinnedMessageID: "m9",
			PinHistory:      []string{"m3", "m9"},
			Unread:          4,
			UnreadMentions:  1,
			LastMessage:     "see you there",
			LastActivity:    now,
			CreatedAt:       now.Add(-24 * time.Hour),
		},
		{
			ID:           "favorites:u1",
			Name:         "Favorites",
			Kind:         "favorites",
			OwnerID:      "u1",
			Members:      []string{"u1"},
			LastActivity: now,
			CreatedAt:    now,
		},
	}

	svc := stubRoomService{rooms: rooms}
	roomHandler := handler.NewRoomHandler(svc, zerolog.Nop())

	app := fiber.New()
	group := app.Group("/api/v1/rooms", func(c *fiber.Ctx) error {
		c.Locals("user_id", "u1")
		c.Locals("user_role", "member")
		return c.Next()
	})
	roomHandler.Register(group)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
