package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/parleyhq/parley-api/internal/dto"
	"github.com/parleyhq/parley-api/internal/models"
	"github.com/parleyhq/parley-api/internal/observability"
	"github.com/parleyhq/parley-api/internal/repository"
	"github.com/parleyhq/parley-api/pkg/apperrors"
)

const defaultListLimit = 50

// PollDelegate lets the ledger hand poll-kind sends to the poll subsystem
// without a package cycle. Wired in main via SetPollDelegate.
type PollDelegate interface {
	CreateFromMessage(ctx context.Context, roomID, creatorID, content string) (dto.MessageResponse, error)
}

// MessageService owns the append-only message ledger: send, edit, soft
// delete, reactions and reads.
type MessageService interface {
	Send(ctx context.Context, roomID, senderID, sessionID string, payload dto.MessageSendRequest) (dto.MessageResponse, error)
	Edit(ctx context.Context, messageID, actorID, sessionID string, payload dto.MessageEditRequest) (dto.MessageResponse, error)
	Delete(ctx context.Context, messageID, actorID string) error
	AddReaction(ctx context.Context, messageID, userID, emoji string) error
	RemoveReaction(ctx context.Context, messageID, userID, emoji string) error
	List(ctx context.Context, roomID, viewerID string, limit int) ([]dto.MessageResponse, error)
	Search(ctx context.Context, roomID, viewerID, query string) ([]dto.MessageResponse, error)
	SetPollDelegate(delegate PollDelegate)
}

type messageService struct {
	messages     repository.MessageRepository
	users        repository.UserRepository
	polls        repository.PollRepository
	rooms        RoomService
	moderation   ModerationService
	cipher       CipherService
	mentions     *mentionResolver
	pollDelegate PollDelegate
	validator    *validator.Validate
	events       EventPublisher
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	tracer       trace.Tracer
	listLimitMax int
	now          func() time.Time
}

// NewMessageService constructs the message ledger service.
func NewMessageService(messages repository.MessageRepository, users repository.UserRepository, polls repository.PollRepository, rooms RoomService, moderation ModerationService, cipher CipherService, validate *validator.Validate, events EventPublisher, listLimitMax int, logger zerolog.Logger) MessageService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	if listLimitMax <= 0 {
		listLimitMax = 100
	}

	return &messageService{
		messages:     messages,
		users:        users,
		polls:        polls,
		rooms:        rooms,
		moderation:   moderation,
		cipher:       cipher,
		mentions:     newMentionResolver(users),
		validator:    validate,
		events:       events,
		sanitizer:    sanitizer,
		logger:       logger.With().Str("component", "message_service").Logger(),
		tracer:       otel.Tracer("github.com/parleyhq/parley-api/internal/service/message"),
		listLimitMax: listLimitMax,
		now:          time.Now,
	}
}

func (s *messageService) SetPollDelegate(delegate PollDelegate) {
	s.pollDelegate = delegate
}

func (s *messageService) Send(ctx context.Context, roomID, senderID, sessionID string, payload dto.MessageSendRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}

	sender, err := s.moderation.Refresh(ctx, senderID)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	now := s.now()
	if sender.Deleted {
		return dto.MessageResponse{}, apperrors.ErrSenderDeleted
	}
	if sender.BanActive(now) && roomID != models.QuarantineRoomID {
		return dto.MessageResponse{}, apperrors.ErrSenderBanned
	}
	if sender.MuteActive(now) {
		return dto.MessageResponse{}, apperrors.ErrSenderMuted
	}

	kind := models.MessageKind(payload.Kind)
	if kind == "" {
		kind = models.MessageText
	}

	if kind == models.MessagePoll {
		if s.pollDelegate == nil {
			return dto.MessageResponse{}, apperrors.InvalidArg("poll sends are not enabled")
		}
		return s.pollDelegate.CreateFromMessage(ctx, roomID, senderID, payload.Content)
	}

	room, err := s.rooms.RoomForSend(ctx, roomID, senderID)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if clean == "" {
		return dto.MessageResponse{}, apperrors.ErrEmptyContent
	}

	spanCtx, span := s.tracer.Start(ctx, "message.send", trace.WithAttributes(
		attribute.String("message.room_id", room.ID),
		attribute.String("message.sender_id", senderID),
		attribute.String("message.kind", string(kind)),
	))
	defer span.End()

	mentions, err := s.mentions.Extract(spanCtx, clean)
	if err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	message := models.Message{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		SenderID:  senderID,
		Content:   s.cipher.Encrypt(sessionID, clean),
		Kind:      kind,
		ReplyTo:   payload.ReplyTo,
		Mentions:  mentions,
		CreatedAt: now,
	}

	if err := s.messages.Save(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}
	if err := s.messages.AppendToRoom(spanCtx, room.ID, message.ID); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	if err := s.rooms.ApplyMessagePosted(spanCtx, room.ID, senderID, mentions, clean); err != nil {
		// Counter updates are best-effort; the message is already persisted.
		s.logger.Warn().Err(err).Str("room_id", room.ID).Msg("failed to apply message counters")
	}

	observability.MessagesSent().WithLabelValues(string(kind)).Inc()
	response := dto.NewMessageResponse(message, sender, clean)
	s.events.Publish(SubjectMessageCreated, response)

	return response, nil
}

func (s *messageService) Edit(ctx context.Context, messageID, actorID, sessionID string, payload dto.MessageEditRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}

	message, err := s.activeMessage(ctx, messageID)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	if message.SenderID != actorID {
		return dto.MessageResponse{}, apperrors.ErrNotAuthor
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if clean == "" {
		return dto.MessageResponse{}, apperrors.ErrEmptyContent
	}

	mentions, err := s.mentions.Extract(ctx, clean)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	now := s.now()
	message.Content = s.cipher.Encrypt(sessionID, clean)
	message.Mentions = mentions
	message.Edited = true
	message.EditedAt = &now

	if err := s.messages.Save(ctx, &message); err != nil {
		return dto.MessageResponse{}, err
	}

	sender, err := s.users.Get(ctx, message.SenderID)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	return dto.NewMessageResponse(message, sender, clean), nil
}

func (s *messageService) Delete(ctx context.Context, messageID, actorID string) error {
	message, err := s.activeMessage(ctx, messageID)
	if err != nil {
		return err
	}

	if message.SenderID != actorID {
		actor, err := s.moderation.Refresh(ctx, actorID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleAdmin && actor.Role != models.RoleModerator {
			return apperrors.ErrNotAuthor
		}
	}

	message.Deleted = true
	if err := s.messages.Save(ctx, &message); err != nil {
		return err
	}

	// Poll carriers cascade to their poll record, best-effort.
	if message.Kind == models.MessagePoll {
		poll, err := s.polls.Get(ctx, message.ID)
		if err == nil {
			poll.Deleted = true
			if err := s.polls.Save(ctx, &poll); err != nil {
				s.logger.Warn().Err(err).Str("poll_id", poll.ID).Msg("failed to cascade delete to poll")
			}
		}
	}

	return nil
}

func (s *messageService) AddReaction(ctx context.Context, messageID, userID, emoji string) error {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return apperrors.InvalidArg("emoji must not be empty")
	}

	message, err := s.activeMessage(ctx, messageID)
	if err != nil {
		return err
	}

	// Idempotent: a duplicate reaction is success without a second entry.
	if !message.AddReaction(emoji, userID) {
		return nil
	}

	if err := s.messages.Save(ctx, &message); err != nil {
		return err
	}

	if err := s.rooms.ApplyReaction(ctx, message.RoomID, message.SenderID, userID); err != nil {
		s.logger.Warn().Err(err).Str("room_id", message.RoomID).Msg("failed to apply reaction counter")
	}

	observability.ReactionUpdates().WithLabelValues("add").Inc()
	return nil
}

// RemoveReaction treats an already-absent reaction as success so concurrent
// toggle races never surface to the client as errors.
func (s *messageService) RemoveReaction(ctx context.Context, messageID, userID, emoji string) error {
	message, err := s.activeMessage(ctx, messageID)
	if err != nil {
		return err
	}

	if !message.RemoveReaction(strings.TrimSpace(emoji), userID) {
		return nil
	}

	if err := s.messages.Save(ctx, &message); err != nil {
		return err
	}

	observability.ReactionUpdates().WithLabelValues("remove").Inc()
	return nil
}

func (s *messageService) List(ctx context.Context, roomID, viewerID string, limit int) ([]dto.MessageResponse, error) {
	if err := s.authorizeRead(ctx, roomID, viewerID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > s.listLimitMax {
		limit = s.listLimitMax
	}

	messages, err := s.messages.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Message, 0, len(messages))
	for _, message := range messages {
		if !message.Deleted {
			visible = append(visible, message)
		}
	}
	if len(visible) > limit {
		visible = visible[len(visible)-limit:]
	}

	return s.enrich(ctx, visible)
}

func (s *messageService) Search(ctx context.Context, roomID, viewerID, query string) ([]dto.MessageResponse, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, apperrors.InvalidArg("search query must not be empty")
	}

	if err := s.authorizeRead(ctx, roomID, viewerID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	matched := make([]models.Message, 0)
	for _, message := range messages {
		if message.Deleted {
			continue
		}
		if strings.Contains(strings.ToLower(s.cipher.Decrypt(message.Content)), query) {
			matched = append(matched, message)
		}
	}

	return s.enrich(ctx, matched)
}

// authorizeRead confines a banned viewer to the quarantine room and
// enforces room visibility for everyone else.
func (s *messageService) authorizeRead(ctx context.Context, roomID, viewerID string) error {
	viewer, err := s.moderation.Refresh(ctx, viewerID)
	if err != nil {
		return err
	}
	if viewer.BanActive(s.now()) && roomID != models.QuarantineRoomID {
		return apperrors.ErrSenderBanned
	}

	_, err = s.rooms.RoomForView(ctx, roomID, viewerID)
	return err
}

func (s *messageService) enrich(ctx context.Context, messages []models.Message) ([]dto.MessageResponse, error) {
	return enrichMessages(ctx, s.users, s.cipher, messages)
}

// enrichMessages decorates messages with each sender's current profile and
// the decrypted content. Shared between the room and DM read paths.
func enrichMessages(ctx context.Context, users repository.UserRepository, cipher CipherService, messages []models.Message) ([]dto.MessageResponse, error) {
	senders := make(map[string]models.User)

	out := make([]dto.MessageResponse, 0, len(messages))
	for _, message := range messages {
		sender, ok := senders[message.SenderID]
		if !ok {
			loaded, err := users.Get(ctx, message.SenderID)
			if err != nil {
				if !apperrors.Is(err, apperrors.CodeNotFound) {
					return nil, err
				}
				loaded = models.User{ID: message.SenderID, DisplayName: "Unknown"}
			}
			sender = loaded
			senders[message.SenderID] = sender
		}
		out = append(out, dto.NewMessageResponse(message, sender, cipher.Decrypt(message.Content)))
	}

	return out, nil
}

func (s *messageService) activeMessage(ctx context.Context, messageID string) (models.Message, error) {
	message, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if message.Deleted {
		return models.Message{}, apperrors.ErrMessageNotFound
	}
	return message, nil
}
