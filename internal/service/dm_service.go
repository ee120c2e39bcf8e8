package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/parleyhq/parley-api/internal/dto"
	"github.com/parleyhq/parley-api/internal/models"
	"github.com/parleyhq/parley-api/internal/observability"
	"github.com/parleyhq/parley-api/internal/repository"
	"github.com/parleyhq/parley-api/pkg/apperrors"
)

// DMService owns pairwise direct-message channels. Channels reuse the
// message ledger's record shape over their own reverse index; hiding a
// channel is per-viewer.
type DMService interface {
	GetOrCreate(ctx context.Context, userID, otherID string) (dto.DMResponse, error)
	List(ctx context.Context, userID string) ([]dto.DMResponse, error)
	Send(ctx context.Context, dmID, senderID, sessionID string, payload dto.DMSendRequest) (dto.MessageResponse, error)
	ListMessages(ctx context.Context, dmID, viewerID string, limit int) ([]dto.MessageResponse, error)
	MarkRead(ctx context.Context, dmID, userID string) error
	Hide(ctx context.Context, dmID, userID string) error
}

type dmService struct {
	channels     repository.DirectChannelRepository
	messages     repository.MessageRepository
	users        repository.UserRepository
	moderation   ModerationService
	cipher       CipherService
	validator    *validator.Validate
	events       EventPublisher
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	listLimitMax int
	now          func() time.Time
}

// NewDMService constructs the direct-message service.
func NewDMService(channels repository.DirectChannelRepository, messages repository.MessageRepository, users repository.UserRepository, moderation ModerationService, cipher CipherService, validate *validator.Validate, events EventPublisher, listLimitMax int, logger zerolog.Logger) DMService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	if listLimitMax <= 0 {
		listLimitMax = 100
	}

	return &dmService{
		channels:     channels,
		messages:     messages,
		users:        users,
		moderation:   moderation,
		cipher:       cipher,
		validator:    validate,
		events:       events,
		sanitizer:    sanitizer,
		logger:       logger.With().Str("component", "dm_service").Logger(),
		listLimitMax: listLimitMax,
		now:          time.Now,
	}
}

func (s *dmService) GetOrCreate(ctx context.Context, userID, otherID string) (dto.DMResponse, error) {
	if userID == otherID {
		return dto.DMResponse{}, apperrors.ErrSelfChannel
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return dto.DMResponse{}, err
	}
	other, err := s.users.Get(ctx, otherID)
	if err != nil {
		return dto.DMResponse{}, err
	}
	if other.Deleted {
		return dto.DMResponse{}, apperrors.ErrUserNotFound
	}
	if user.HasBlocked(otherID) || other.HasBlocked(userID) {
		return dto.DMResponse{}, apperrors.ErrBlockedChannel
	}

	id := models.DirectChannelID(userID, otherID)

	channel, err := s.channels.Get(ctx, id)
	if err == nil {
		// Re-opening a hidden channel unhides it for the requester.
		if channel.Hidden[userID] {
			channel.Hidden[userID] = false
			channel.UpdatedAt = s.now()
			if err := s.channels.Save(ctx, &channel); err != nil {
				return dto.DMResponse{}, err
			}
		}
		return dto.NewDMResponse(channel, userID), nil
	}
	if !apperrors.Is(err, apperrors.CodeNotFound) {
		return dto.DMResponse{}, err
	}

	now := s.now()
	channel = models.DirectChannel{
		ID:           id,
		Participants: []string{userID, otherID},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.channels.Save(ctx, &channel); err != nil {
		return dto.DMResponse{}, err
	}

	s.logger.Info().Str("dm_id", id).Msg("direct channel created")
	return dto.NewDMResponse(channel, userID), nil
}

func (s *dmService) List(ctx context.Context, userID string) ([]dto.DMResponse, error) {
	channels, err := s.channels.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	visible := make([]models.DirectChannel, 0, len(channels))
	for _, channel := range channels {
		if !channel.Hidden[userID] {
			visible = append(visible, channel)
		}
	}

	return dto.NewDMResponseSlice(visible, userID), nil
}

func (s *dmService) Send(ctx context.Context, dmID, senderID, sessionID string, payload dto.DMSendRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}

	channel, err := s.channels.Get(ctx, dmID)
	if err != nil {
		return dto.MessageResponse{}, err
	}
	if !channel.HasParticipant(senderID) {
		return dto.MessageResponse{}, apperrors.Forbidden("sender is not a channel participant")
	}

	sender, err := s.moderation.Refresh(ctx, senderID)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	now := s.now()
	if sender.Deleted {
		return dto.MessageResponse{}, apperrors.ErrSenderDeleted
	}
	if sender.BanActive(now) {
		return dto.MessageResponse{}, apperrors.ErrSenderBanned
	}
	if sender.MuteActive(now) {
		return dto.MessageResponse{}, apperrors.ErrSenderMuted
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if clean == "" {
		return dto.MessageResponse{}, apperrors.ErrEmptyContent
	}

	kind := models.MessageKind(payload.Kind)
	if kind == "" {
		kind = models.MessageText
	}

	message := models.Message{
		ID:        uuid.NewString(),
		RoomID:    dmID,
		SenderID:  senderID,
		Content:   s.cipher.Encrypt(sessionID, clean),
		Kind:      kind,
		CreatedAt: now,
	}

	if err := s.messages.Save(ctx, &message); err != nil {
		return dto.MessageResponse{}, err
	}
	if err := s.messages.AppendToChannel(ctx, dmID, message.ID); err != nil {
		return dto.MessageResponse{}, err
	}

	channel.IncrementUnread(channel.Counterpart(senderID))
	channel.LastMessage = truncatePreview(clean)
	// A new message resurfaces the channel for both participants.
	for key := range channel.Hidden {
		channel.Hidden[key] = false
	}
	channel.UpdatedAt = now

	if err := s.channels.Save(ctx, &channel); err != nil {
		s.logger.Warn().Err(err).Str("dm_id", dmID).Msg("failed to update channel counters")
	}

	observability.MessagesSent().WithLabelValues(string(kind)).Inc()
	response := dto.NewMessageResponse(message, sender, clean)
	s.events.Publish(SubjectMessageCreated, response)

	return response, nil
}

func (s *dmService) ListMessages(ctx context.Context, dmID, viewerID string, limit int) ([]dto.MessageResponse, error) {
	channel, err := s.channels.Get(ctx, dmID)
	if err != nil {
		return nil, err
	}
	if !channel.HasParticipant(viewerID) {
		return nil, apperrors.Forbidden("viewer is not a channel participant")
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > s.listLimitMax {
		limit = s.listLimitMax
	}

	messages, err := s.messages.ListByChannel(ctx, dmID)
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

	return enrichMessages(ctx, s.users, s.cipher, visible)
}

func (s *dmService) MarkRead(ctx context.Context, dmID, userID string) error {
	channel, err := s.channels.Get(ctx, dmID)
	if err != nil {
		return err
	}
	if !channel.HasParticipant(userID) {
		return apperrors.Forbidden("user is not a channel participant")
	}

	if channel.Unread == nil {
		channel.Unread = make(map[string]int)
	}
	channel.Unread[userID] = 0

	if channel.LastRead == nil {
		channel.LastRead = make(map[string]time.Time)
	}
	channel.LastRead[userID] = s.now()
	channel.UpdatedAt = s.now()

	return s.channels.Save(ctx, &channel)
}

// Hide soft-deletes the channel for one participant only; the record and
// its messages persist for the other side.
func (s *dmService) Hide(ctx context.Context, dmID, userID string) error {
	channel, err := s.channels.Get(ctx, dmID)
	if err != nil {
		return err
	}
	if !channel.HasParticipant(userID) {
		return apperrors.Forbidden("user is not a channel participant")
	}

	if channel.Hidden == nil {
		channel.Hidden = make(map[string]bool)
	}
	channel.Hidden[userID] = true
	channel.UpdatedAt = s.now()

	return s.channels.Save(ctx, &channel)
}
