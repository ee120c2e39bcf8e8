package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/parleyhq/parley-api/internal/dto"
	"github.com/parleyhq/parley-api/internal/models"
	"github.com/parleyhq/parley-api/internal/observability"
	"github.com/parleyhq/parley-api/internal/repository"
	"github.com/parleyhq/parley-api/pkg/apperrors"
)

// PollService owns poll creation and single-vote tallying. Every poll rides
// on a carrier message of kind poll in the target room.
type PollService interface {
	Create(ctx context.Context, creatorID string, payload dto.PollCreateRequest) (dto.PollResponse, error)
	Vote(ctx context.Context, pollID, userID string, optionIndex int) (dto.PollResponse, error)
	Get(ctx context.Context, pollID string) (dto.PollResponse, error)

	PollDelegate
}

type pollService struct {
	polls      repository.PollRepository
	messages   repository.MessageRepository
	users      repository.UserRepository
	rooms      RoomService
	moderation ModerationService
	validator  *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
}

// NewPollService constructs the poll subsystem.
func NewPollService(polls repository.PollRepository, messages repository.MessageRepository, users repository.UserRepository, rooms RoomService, moderation ModerationService, validate *validator.Validate, logger zerolog.Logger) PollService {
	return &pollService{
		polls:      polls,
		messages:   messages,
		users:      users,
		rooms:      rooms,
		moderation: moderation,
		validator:  validate,
		logger:     logger.With().Str("component", "poll_service").Logger(),
		now:        time.Now,
	}
}

func (s *pollService) Create(ctx context.Context, creatorID string, payload dto.PollCreateRequest) (dto.PollResponse, error) {
	_, poll, err := s.create(ctx, creatorID, payload)
	if err != nil {
		return dto.PollResponse{}, err
	}
	return dto.NewPollResponse(poll), nil
}

// CreateFromMessage accepts a poll posted through the message ledger: the
// message content carries the poll definition as JSON.
func (s *pollService) CreateFromMessage(ctx context.Context, roomID, creatorID, content string) (dto.MessageResponse, error) {
	var payload dto.PollCreateRequest
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return dto.MessageResponse{}, apperrors.InvalidArg("poll message content must be a JSON poll definition")
	}
	payload.RoomID = roomID

	message, _, err := s.create(ctx, creatorID, payload)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	creator, err := s.users.Get(ctx, creatorID)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	return dto.NewMessageResponse(message, creator, message.Content), nil
}

func (s *pollService) create(ctx context.Context, creatorID string, payload dto.PollCreateRequest) (models.Message, models.Poll, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Message{}, models.Poll{}, err
	}

	options := make([]string, 0, len(payload.Options))
	for _, option := range payload.Options {
		trimmed := strings.TrimSpace(option)
		if trimmed == "" {
			return models.Message{}, models.Poll{}, apperrors.InvalidArg("poll options must not be empty")
		}
		options = append(options, trimmed)
	}
	if len(options) < 2 {
		return models.Message{}, models.Poll{}, apperrors.InvalidArg("polls need at least two options")
	}

	creator, err := s.moderation.Refresh(ctx, creatorID)
	if err != nil {
		return models.Message{}, models.Poll{}, err
	}

	now := s.now()
	if creator.Deleted {
		return models.Message{}, models.Poll{}, apperrors.ErrSenderDeleted
	}
	if creator.BanActive(now) && payload.RoomID != models.QuarantineRoomID {
		return models.Message{}, models.Poll{}, apperrors.ErrSenderBanned
	}
	if creator.MuteActive(now) {
		return models.Message{}, models.Poll{}, apperrors.ErrSenderMuted
	}

	room, err := s.rooms.RoomForSend(ctx, payload.RoomID, creatorID)
	if err != nil {
		return models.Message{}, models.Poll{}, err
	}

	question := strings.TrimSpace(payload.Question)

	message := models.Message{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		SenderID:  creatorID,
		Content:   question,
		Kind:      models.MessagePoll,
		CreatedAt: now,
	}

	if err := s.messages.Save(ctx, &message); err != nil {
		return models.Message{}, models.Poll{}, err
	}
	if err := s.messages.AppendToRoom(ctx, room.ID, message.ID); err != nil {
		return models.Message{}, models.Poll{}, err
	}

	poll := models.Poll{
		ID:        message.ID,
		RoomID:    room.ID,
		Question:  question,
		Options:   options,
		Anonymous: payload.Anonymous,
		CreatorID: creatorID,
		CreatedAt: now,
	}

	if err := s.polls.Save(ctx, &poll); err != nil {
		return models.Message{}, models.Poll{}, err
	}

	if err := s.rooms.ApplyMessagePosted(ctx, room.ID, creatorID, nil, question); err != nil {
		s.logger.Warn().Err(err).Str("room_id", room.ID).Msg("failed to apply poll carrier counters")
	}

	observability.MessagesSent().WithLabelValues(string(models.MessagePoll)).Inc()
	s.logger.Info().Str("poll_id", poll.ID).Str("room_id", room.ID).Msg("poll created")

	return message, poll, nil
}

// Vote records one vote. A user votes once across all options; there is no
// retraction and no vote change.
func (s *pollService) Vote(ctx context.Context, pollID, userID string, optionIndex int) (dto.PollResponse, error) {
	poll, err := s.activePoll(ctx, pollID)
	if err != nil {
		return dto.PollResponse{}, err
	}

	if optionIndex < 0 || optionIndex >= len(poll.Options) {
		return dto.PollResponse{}, apperrors.InvalidArg("option index out of range")
	}

	if poll.VoterOption(userID) >= 0 {
		return dto.PollResponse{}, apperrors.ErrAlreadyVoted
	}

	poll.RecordVote(optionIndex, userID)

	if err := s.polls.Save(ctx, &poll); err != nil {
		return dto.PollResponse{}, err
	}

	observability.PollVotes().Inc()
	return dto.NewPollResponse(poll), nil
}

func (s *pollService) Get(ctx context.Context, pollID string) (dto.PollResponse, error) {
	poll, err := s.activePoll(ctx, pollID)
	if err != nil {
		return dto.PollResponse{}, err
	}
	return dto.NewPollResponse(poll), nil
}

func (s *pollService) activePoll(ctx context.Context, pollID string) (models.Poll, error) {
	poll, err := s.polls.Get(ctx, pollID)
	if err != nil {
		return models.Poll{}, err
	}
	if poll.Deleted {
		return models.Poll{}, apperrors.ErrPollNotFound
	}
	return poll, nil
}
