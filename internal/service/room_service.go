package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/parleyhq/parley-api/internal/dto"
	"github.com/parleyhq/parley-api/internal/models"
	"github.com/parleyhq/parley-api/internal/repository"
	"github.com/parleyhq/parley-api/pkg/apperrors"
)

const previewRuneLimit = 120

// RoomService owns room lifecycle, membership, pin history and the per-room
// per-user counters.
type RoomService interface {
	Create(ctx context.Context, ownerID string, payload dto.RoomCreateRequest) (dto.RoomResponse, error)
	Join(ctx context.Context, roomID, userID string) error
	Leave(ctx context.Context, roomID, userID string) error
	Invite(ctx context.Context, roomID, targetID, inviterID string) error
	Pin(ctx context.Context, roomID, messageID, actorID string) error
	Unpin(ctx context.Context, roomID, messageID, actorID string) error
	Delete(ctx context.Context, roomID, actorID string) error
	MarkRead(ctx context.Context, roomID, userID string, clearMentions, clearReactions bool) error
	ListForUser(ctx context.Context, userID string) ([]dto.RoomResponse, error)
	EnsureFavoritesRoom(ctx context.Context, userID string) (models.Room, error)

	// RoomForSend resolves the room a message is being posted into,
	// applying the public-room auto-join rule.
	RoomForSend(ctx context.Context, roomID, senderID string) (models.Room, error)

	// RoomForView resolves the room a viewer is reading from. Public rooms
	// are visible to everyone; other kinds require membership or the
	// observer account.
	RoomForView(ctx context.Context, roomID, viewerID string) (models.Room, error)

	// Counter hooks invoked by the message ledger. Read-modify-write on the
	// single room record; racing writers can lose increments, which the
	// engine accepts.
	ApplyMessagePosted(ctx context.Context, roomID, senderID string, mentions []string, preview string) error
	ApplyReaction(ctx context.Context, roomID, authorID, reactorID string) error
}

type roomService struct {
	rooms      repository.RoomRepository
	messages   repository.MessageRepository
	moderation ModerationService
	validator  *validator.Validate
	events     EventPublisher
	observerID string
	logger     zerolog.Logger
	now        func() time.Time
}

// NewRoomService constructs the room directory service. observerID names
// the single account granted privileged read-only room visibility.
func NewRoomService(rooms repository.RoomRepository, messages repository.MessageRepository, moderation ModerationService, validate *validator.Validate, events EventPublisher, observerID string, logger zerolog.Logger) RoomService {
	return &roomService{
		rooms:      rooms,
		messages:   messages,
		moderation: moderation,
		validator:  validate,
		events:     events,
		observerID: observerID,
		logger:     logger.With().Str("component", "room_service").Logger(),
		now:        time.Now,
	}
}

func (s *roomService) Create(ctx context.Context, ownerID string, payload dto.RoomCreateRequest) (dto.RoomResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RoomResponse{}, err
	}

	owner, err := s.moderation.Refresh(ctx, ownerID)
	if err != nil {
		return dto.RoomResponse{}, err
	}
	if owner.Deleted {
		return dto.RoomResponse{}, apperrors.ErrSenderDeleted
	}
	if owner.BanActive(s.now()) {
		return dto.RoomResponse{}, apperrors.ErrSenderBanned
	}

	kind := models.RoomKind(payload.Kind)
	if kind == "" {
		kind = models.RoomPublic
	}

	now := s.now()
	room := models.Room{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(payload.Name),
		Kind:         kind,
		OwnerID:      ownerID,
		Members:      []string{ownerID},
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.rooms.Save(ctx, &room); err != nil {
		return dto.RoomResponse{}, err
	}

	s.events.Publish(SubjectRoomUpdated, map[string]interface{}{"action": "created", "room_id": room.ID})
	s.logger.Info().Str("room_id", room.ID).Str("owner_id", ownerID).Msg("room created")

	return dto.NewRoomResponse(room, ownerID), nil
}

func (s *roomService) Join(ctx context.Context, roomID, userID string) error {
	user, err := s.moderation.Refresh(ctx, userID)
	if err != nil {
		return err
	}
	if user.BanActive(s.now()) && roomID != models.QuarantineRoomID {
		return apperrors.ErrSenderBanned
	}

	room, err := s.activeRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if room.Kind == models.RoomPrivate && roomID != models.QuarantineRoomID {
		return apperrors.Forbidden("private rooms are invite-only")
	}

	if !room.AddMember(userID) {
		return apperrors.Conflict("user is already a member")
	}

	room.UpdatedAt = s.now()
	return s.rooms.Save(ctx, &room)
}

func (s *roomService) Leave(ctx context.Context, roomID, userID string) error {
	room, err := s.activeRoom(ctx, roomID)
	if err != nil {
		return err
	}

	// Leaving a room you are not in is success, not an error.
	if !room.RemoveMember(userID) {
		return nil
	}

	room.UpdatedAt = s.now()
	return s.rooms.Save(ctx, &room)
}

func (s *roomService) Invite(ctx context.Context, roomID, targetID, inviterID string) error {
	room, err := s.activeRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if !room.HasMember(inviterID) {
		return apperrors.ErrNotRoomMember
	}

	target, err := s.moderation.Refresh(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Deleted {
		return apperrors.ErrUserNotFound
	}
	if target.BanActive(s.now()) {
		return apperrors.Conflict("banned users cannot be invited")
	}

	if !room.AddMember(targetID) {
		return apperrors.Conflict("user is already a member")
	}

	room.UpdatedAt = s.now()
	return s.rooms.Save(ctx, &room)
}

func (s *roomService) Pin(ctx context.Context, roomID, messageID, actorID string) error {
	room, err := s.activeRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if err := s.requireMemberOrStaff(ctx, &room, actorID); err != nil {
		return err
	}

	message, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if message.Deleted || message.RoomID != roomID {
		return apperrors.ErrMessageNotFound
	}

	if room.CurrentPin() == messageID {
		return nil
	}

	room.PinHistory = append(room.PinHistory, messageID)
	room.UpdatedAt = s.now()
	return s.rooms.Save(ctx, &room)
}

// Unpin removes a message from the pin history. Unpinning the current pin
// pops the stack, promoting the next-most-recent entry; an empty message id
// targets the current pin.
func (s *roomService) Unpin(ctx context.Context, roomID, messageID, actorID string) error {
	room, err := s.activeRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if err := s.requireMemberOrStaff(ctx, &room, actorID); err != nil {
		return err
	}

	if len(room.PinHistory) == 0 {
		return nil
	}

	if messageID == "" {
		messageID = room.CurrentPin()
	}

	for i := len(room.PinHistory) - 1; i >= 0; i-- {
		if room.PinHistory[i] == messageID {
			room.PinHistory = append(room.PinHistory[:i], room.PinHistory[i+1:]...)
			room.UpdatedAt = s.now()
			return s.rooms.Save(ctx, &room)
		}
	}

	// Nothing to undo: success.
	return nil
}

func (s *roomService) Delete(ctx context.Context, roomID, actorID string) error {
	room, err := s.activeRoom(ctx, roomID)
	if err != nil {
		return err
	}

	actor, err := s.moderation.Refresh(ctx, actorID)
	if err != nil {
		return err
	}
	if actorID != room.OwnerID && actor.Role != models.RoleAdmin && actor.Role != models.RoleModerator {
		return apperrors.Forbidden("only the owner or staff may delete a room")
	}

	room.Deleted = true
	room.UpdatedAt = s.now()
	if err := s.rooms.Save(ctx, &room); err != nil {
		return err
	}

	// Cascade: soft-delete the room's messages, best-effort.
	messages, err := s.messages.ListByRoom(ctx, roomID)
	if err != nil {
		s.logger.Warn().Err(err).Str("room_id", roomID).Msg("room delete cascade could not list messages")
		return nil
	}
	for i := range messages {
		message := messages[i]
		if message.Deleted {
			continue
		}
		message.Deleted = true
		if err := s.messages.Save(ctx, &message); err != nil {
			s.logger.Warn().Err(err).Str("message_id", message.ID).Msg("room delete cascade failed for message, continuing")
		}
	}

	s.events.Publish(SubjectRoomUpdated, map[string]interface{}{"action": "deleted", "room_id": roomID})
	return nil
}

func (s *roomService) MarkRead(ctx context.Context, roomID, userID string, clearMentions, clearReactions bool) error {
	room, err := s.activeRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if room.Unread == nil {
		room.Unread = make(map[string]int)
	}
	room.Unread[userID] = 0

	if clearMentions && room.UnreadMentions != nil {
		room.UnreadMentions[userID] = 0
	}
	if clearReactions && room.UnreadReactions != nil {
		room.UnreadReactions[userID] = 0
	}

	if room.LastRead == nil {
		room.LastRead = make(map[string]time.Time)
	}
	room.LastRead[userID] = s.now()
	room.UpdatedAt = s.now()

	return s.rooms.Save(ctx, &room)
}

func (s *roomService) ListForUser(ctx context.Context, userID string) ([]dto.RoomResponse, error) {
	user, err := s.moderation.Refresh(ctx, userID)
	if err != nil {
		return nil, err
	}

	// A banned user sees exactly the quarantine room.
	if user.BanActive(s.now()) {
		quarantine, err := s.moderation.EnsureQuarantineRoom(ctx)
		if err != nil {
			return nil, err
		}
		return []dto.RoomResponse{dto.NewRoomResponse(quarantine, userID)}, nil
	}

	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, err
	}

	observer := s.observerID != "" && userID == s.observerID

	visible := make([]models.Room, 0, len(rooms))
	for _, room := range rooms {
		if observer {
			// Observer sees every non-favorites room without membership.
			if room.Kind != models.RoomFavorites {
				visible = append(visible, room)
			}
			continue
		}

		switch {
		case room.ID == models.QuarantineRoomID:
			continue
		case room.Kind == models.RoomFavorites:
			if room.OwnerID == userID {
				visible = append(visible, room)
			}
		case room.Kind == models.RoomDirect:
			if room.HasMember(userID) && !s.counterpartBlocked(user, room) {
				visible = append(visible, room)
			}
		case room.Kind == models.RoomPublic:
			visible = append(visible, room)
		default:
			if room.HasMember(userID) {
				visible = append(visible, room)
			}
		}
	}

	sort.Slice(visible, func(i, j int) bool {
		return visible[i].LastActivity.After(visible[j].LastActivity)
	})

	return dto.NewRoomResponseSlice(visible, userID), nil
}

func (s *roomService) counterpartBlocked(user models.User, room models.Room) bool {
	for _, member := range room.Members {
		if member != user.ID && user.HasBlocked(member) {
			return true
		}
	}
	return false
}

// EnsureFavoritesRoom resolves the per-user favorites singleton, creating
// it lazily on first access.
func (s *roomService) EnsureFavoritesRoom(ctx context.Context, userID string) (models.Room, error) {
	id := "favorites:" + userID

	room, err := s.rooms.Get(ctx, id)
	if err == nil && !room.Deleted {
		return room, nil
	}
	if err != nil && !apperrors.Is(err, apperrors.CodeNotFound) {
		return models.Room{}, err
	}

	now := s.now()
	room = models.Room{
		ID:           id,
		Name:         "Favorites",
		Kind:         models.RoomFavorites,
		OwnerID:      userID,
		Members:      []string{userID},
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.rooms.Save(ctx, &room); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

func (s *roomService) RoomForSend(ctx context.Context, roomID, senderID string) (models.Room, error) {
	room, err := s.activeRoom(ctx, roomID)
	if err != nil {
		return models.Room{}, err
	}

	if room.HasMember(senderID) {
		return room, nil
	}

	// Sending into a public room implies membership.
	if room.Kind == models.RoomPublic {
		room.AddMember(senderID)
		room.UpdatedAt = s.now()
		if err := s.rooms.Save(ctx, &room); err != nil {
			return models.Room{}, err
		}
		return room, nil
	}

	return models.Room{}, apperrors.ErrNotRoomMember
}

func (s *roomService) RoomForView(ctx context.Context, roomID, viewerID string) (models.Room, error) {
	room, err := s.activeRoom(ctx, roomID)
	if err != nil {
		return models.Room{}, err
	}

	if room.Kind == models.RoomPublic || room.HasMember(viewerID) {
		return room, nil
	}
	if s.observerID != "" && viewerID == s.observerID {
		return room, nil
	}

	return models.Room{}, apperrors.ErrNotRoomMember
}

func (s *roomService) ApplyMessagePosted(ctx context.Context, roomID, senderID string, mentions []string, preview string) error {
	room, err := s.activeRoom(ctx, roomID)
	if err != nil {
		return err
	}

	for _, member := range room.Members {
		if member != senderID {
			room.IncrementUnread(member)
		}
	}

	seen := make(map[string]struct{}, len(mentions))
	for _, target := range mentions {
		if target == senderID {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		room.IncrementMentions(target)
	}

	room.LastMessage = truncatePreview(preview)
	room.LastActivity = s.now()
	room.UpdatedAt = room.LastActivity

	return s.rooms.Save(ctx, &room)
}

func (s *roomService) ApplyReaction(ctx context.Context, roomID, authorID, reactorID string) error {
	if authorID == reactorID {
		return nil
	}

	room, err := s.activeRoom(ctx, roomID)
	if err != nil {
		return err
	}

	room.IncrementReactions(authorID)
	room.UpdatedAt = s.now()
	return s.rooms.Save(ctx, &room)
}

func (s *roomService) activeRoom(ctx context.Context, roomID string) (models.Room, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return models.Room{}, err
	}
	if room.Deleted {
		return models.Room{}, apperrors.ErrRoomNotFound
	}
	return room, nil
}

func (s *roomService) requireMemberOrStaff(ctx context.Context, room *models.Room, actorID string) error {
	if room.HasMember(actorID) {
		return nil
	}

	actor, err := s.moderation.Refresh(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.Role == models.RoleAdmin || actor.Role == models.RoleModerator {
		return nil
	}
	return apperrors.ErrNotRoomMember
}

func truncatePreview(preview string) string {
	runes := []rune(preview)
	if len(runes) <= previewRuneLimit {
		return preview
	}
	return string(runes[:previewRuneLimit]) + "…"
}
