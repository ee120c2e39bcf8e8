package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/parleyhq/parley-api/internal/models"
	"github.com/parleyhq/parley-api/internal/observability"
	"github.com/parleyhq/parley-api/internal/repository"
	"github.com/parleyhq/parley-api/pkg/apperrors"
)

// ModerationService owns ban/mute/role state and the quarantine cascade.
type ModerationService interface {
	Ban(ctx context.Context, targetID, actorID string, hours int) error
	Unban(ctx context.Context, targetID, actorID string) error
	Mute(ctx context.Context, targetID, actorID string, hours int) error
	Unmute(ctx context.Context, targetID, actorID string) error
	SetRole(ctx context.Context, targetID string, role models.Role, actorID string) error
	Block(ctx context.Context, userID, targetID string) error
	Unblock(ctx context.Context, userID, targetID string) error
	PurgeUser(ctx context.Context, targetID, actorID string) error

	// Refresh loads the user and lazily clears expired ban/mute windows.
	// Every read path that inspects moderation state goes through it.
	Refresh(ctx context.Context, userID string) (models.User, error)

	// EnsureQuarantineRoom resolves the singleton quarantine room, creating
	// it on first use.
	EnsureQuarantineRoom(ctx context.Context) (models.Room, error)
}

type moderationService struct {
	users     repository.UserRepository
	rooms     repository.RoomRepository
	messages  repository.MessageRepository
	events    EventPublisher
	founderID string
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewModerationService constructs the moderation service. founderID names
// the account immune to ban, mute and purge.
func NewModerationService(users repository.UserRepository, rooms repository.RoomRepository, messages repository.MessageRepository, events EventPublisher, founderID string, logger zerolog.Logger) ModerationService {
	return &moderationService{
		users:     users,
		rooms:     rooms,
		messages:  messages,
		events:    events,
		founderID: founderID,
		logger:    logger.With().Str("component", "moderation_service").Logger(),
		tracer:    otel.Tracer("github.com/parleyhq/parley-api/internal/service/moderation"),
		now:       time.Now,
	}
}

// canModerate enforces the hierarchy: admins act on anyone below founder
// immunity, moderators only on roles they outrank.
func (s *moderationService) canModerate(actor, target models.User) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleModerator:
		if actor.Role.Outranks(target.Role) {
			return nil
		}
		return apperrors.Forbidden("moderators may not act on this account")
	default:
		return apperrors.Forbidden("insufficient role for moderation")
	}
}

func (s *moderationService) loadPair(ctx context.Context, targetID, actorID string) (target, actor models.User, err error) {
	if actor, err = s.users.Get(ctx, actorID); err != nil {
		return
	}
	target, err = s.users.Get(ctx, targetID)
	return
}

func (s *moderationService) Ban(ctx context.Context, targetID, actorID string, hours int) error {
	target, actor, err := s.loadPair(ctx, targetID, actorID)
	if err != nil {
		return err
	}

	if err := s.canModerate(actor, target); err != nil {
		return err
	}
	if target.ID == s.founderID {
		return apperrors.ErrFounderImmune
	}
	if target.Role == models.RoleVIP {
		return apperrors.ErrBanImmune
	}

	now := s.now()
	if target.BanActive(now) {
		// Already banned: no-op success.
		return nil
	}

	spanCtx, span := s.tracer.Start(ctx, "moderation.ban", trace.WithAttributes(
		attribute.String("moderation.target_id", targetID),
		attribute.String("moderation.actor_id", actorID),
		attribute.Int("moderation.hours", hours),
	))
	defer span.End()

	target.Banned = true
	target.BanUntil = nil
	if hours > 0 {
		until := now.Add(time.Duration(hours) * time.Hour)
		target.BanUntil = &until
	}
	target.UpdatedAt = now

	if err := s.users.Save(spanCtx, &target); err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.confineToQuarantine(spanCtx, &target); err != nil {
		span.RecordError(err)
		return err
	}

	observability.ModerationActions().WithLabelValues("ban").Inc()
	s.events.Publish(SubjectModerationApplied, map[string]interface{}{
		"action": "ban", "user_id": targetID, "actor_id": actorID, "hours": hours,
	})
	s.logger.Info().Str("target_id", targetID).Str("actor_id", actorID).Int("hours", hours).Msg("user banned")

	return nil
}

// confineToQuarantine joins the user to the quarantine room and removes
// them from every other room. The membership cascade is best-effort: a
// failure on one room is logged and the sweep continues.
func (s *moderationService) confineToQuarantine(ctx context.Context, target *models.User) error {
	quarantine, err := s.EnsureQuarantineRoom(ctx)
	if err != nil {
		return err
	}

	if quarantine.AddMember(target.ID) {
		quarantine.UpdatedAt = s.now()
		if err := s.rooms.Save(ctx, &quarantine); err != nil {
			return err
		}
	}

	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return err
	}

	for i := range rooms {
		room := rooms[i]
		if room.ID == models.QuarantineRoomID || !room.HasMember(target.ID) {
			continue
		}
		room.RemoveMember(target.ID)
		room.UpdatedAt = s.now()
		if err := s.rooms.Save(ctx, &room); err != nil {
			s.logger.Warn().Err(err).Str("room_id", room.ID).Str("user_id", target.ID).Msg("ban cascade failed for room, continuing")
		}
	}

	return nil
}

func (s *moderationService) Unban(ctx context.Context, targetID, actorID string) error {
	target, actor, err := s.loadPair(ctx, targetID, actorID)
	if err != nil {
		return err
	}

	if err := s.canModerate(actor, target); err != nil {
		return err
	}

	if !target.Banned {
		return nil
	}

	if err := s.liftBan(ctx, &target); err != nil {
		return err
	}

	observability.ModerationActions().WithLabelValues("unban").Inc()
	s.events.Publish(SubjectModerationApplied, map[string]interface{}{
		"action": "unban", "user_id": targetID, "actor_id": actorID,
	})
	s.logger.Info().Str("target_id", targetID).Str("actor_id", actorID).Msg("user unbanned")

	return nil
}

// liftBan clears the ban flags and releases the user from quarantine. Prior
// memberships are not restored; the user re-joins rooms through the normal
// join and auto-join paths.
func (s *moderationService) liftBan(ctx context.Context, target *models.User) error {
	target.Banned = false
	target.BanUntil = nil
	target.UpdatedAt = s.now()

	if err := s.users.Save(ctx, target); err != nil {
		return err
	}

	quarantine, err := s.rooms.Get(ctx, models.QuarantineRoomID)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return nil
		}
		return err
	}
	if quarantine.RemoveMember(target.ID) {
		quarantine.UpdatedAt = s.now()
		if err := s.rooms.Save(ctx, &quarantine); err != nil {
			s.logger.Warn().Err(err).Str("user_id", target.ID).Msg("failed to release user from quarantine")
		}
	}

	return nil
}

func (s *moderationService) Mute(ctx context.Context, targetID, actorID string, hours int) error {
	if hours <= 0 || hours > 24 {
		return apperrors.ErrMuteWindowTooBig
	}

	target, actor, err := s.loadPair(ctx, targetID, actorID)
	if err != nil {
		return err
	}

	if err := s.canModerate(actor, target); err != nil {
		return err
	}
	if target.ID == s.founderID {
		return apperrors.ErrFounderImmune
	}

	now := s.now()
	if target.MuteActive(now) {
		return nil
	}

	until := now.Add(time.Duration(hours) * time.Hour)
	target.MuteUntil = &until
	target.UpdatedAt = now

	if err := s.users.Save(ctx, &target); err != nil {
		return err
	}

	observability.ModerationActions().WithLabelValues("mute").Inc()
	s.logger.Info().Str("target_id", targetID).Str("actor_id", actorID).Int("hours", hours).Msg("user muted")

	return nil
}

func (s *moderationService) Unmute(ctx context.Context, targetID, actorID string) error {
	target, actor, err := s.loadPair(ctx, targetID, actorID)
	if err != nil {
		return err
	}

	if err := s.canModerate(actor, target); err != nil {
		return err
	}

	if target.MuteUntil == nil {
		return nil
	}

	target.MuteUntil = nil
	target.UpdatedAt = s.now()

	if err := s.users.Save(ctx, &target); err != nil {
		return err
	}

	observability.ModerationActions().WithLabelValues("unmute").Inc()
	return nil
}

func (s *moderationService) SetRole(ctx context.Context, targetID string, role models.Role, actorID string) error {
	if !role.Valid() {
		return apperrors.InvalidArg("unknown role")
	}

	target, actor, err := s.loadPair(ctx, targetID, actorID)
	if err != nil {
		return err
	}

	if actor.Role != models.RoleAdmin {
		return apperrors.Forbidden("role transitions are admin-only")
	}

	if target.Role == role {
		return nil
	}

	target.Role = role
	target.UpdatedAt = s.now()

	if err := s.users.Save(ctx, &target); err != nil {
		return err
	}

	observability.ModerationActions().WithLabelValues("set_role").Inc()
	s.logger.Info().Str("target_id", targetID).Str("actor_id", actorID).Str("role", string(role)).Msg("role changed")

	return nil
}

func (s *moderationService) Block(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return apperrors.InvalidArg("cannot block yourself")
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.users.Get(ctx, targetID); err != nil {
		return err
	}

	if user.HasBlocked(targetID) {
		return nil
	}

	user.Blocked = append(user.Blocked, targetID)
	user.UpdatedAt = s.now()

	return s.users.Save(ctx, &user)
}

func (s *moderationService) Unblock(ctx context.Context, userID, targetID string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}

	for i, id := range user.Blocked {
		if id == targetID {
			user.Blocked = append(user.Blocked[:i], user.Blocked[i+1:]...)
			user.UpdatedAt = s.now()
			return s.users.Save(ctx, &user)
		}
	}

	// Nothing to undo: success, to tolerate client-side races.
	return nil
}

func (s *moderationService) PurgeUser(ctx context.Context, targetID, actorID string) error {
	target, actor, err := s.loadPair(ctx, targetID, actorID)
	if err != nil {
		return err
	}

	if actor.Role != models.RoleAdmin {
		return apperrors.Forbidden("purge is admin-only")
	}
	if target.ID == s.founderID {
		return apperrors.ErrFounderImmune
	}

	spanCtx, span := s.tracer.Start(ctx, "moderation.purge", trace.WithAttributes(
		attribute.String("moderation.target_id", targetID),
	))
	defer span.End()

	target.Deleted = true
	target.UpdatedAt = s.now()
	if err := s.users.Save(spanCtx, &target); err != nil {
		span.RecordError(err)
		return err
	}

	// Tombstone every authored message; log and continue on failures.
	authored, err := s.messages.ListBySender(spanCtx, targetID)
	if err != nil {
		return err
	}
	for i := range authored {
		message := authored[i]
		message.Content = models.DeletedContentPlaceholder
		message.Deleted = true
		if err := s.messages.Save(spanCtx, &message); err != nil {
			s.logger.Warn().Err(err).Str("message_id", message.ID).Msg("purge cascade failed for message, continuing")
		}
	}

	rooms, err := s.rooms.List(spanCtx)
	if err != nil {
		return err
	}
	for i := range rooms {
		room := rooms[i]
		if !room.HasMember(targetID) {
			continue
		}
		room.RemoveMember(targetID)
		room.UpdatedAt = s.now()
		if err := s.rooms.Save(spanCtx, &room); err != nil {
			s.logger.Warn().Err(err).Str("room_id", room.ID).Msg("purge cascade failed for room, continuing")
		}
	}

	observability.ModerationActions().WithLabelValues("purge").Inc()
	s.events.Publish(SubjectModerationApplied, map[string]interface{}{
		"action": "purge", "user_id": targetID, "actor_id": actorID,
	})
	s.logger.Info().Str("target_id", targetID).Str("actor_id", actorID).Msg("user purged")

	return nil
}

func (s *moderationService) Refresh(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	now := s.now()
	changed := false

	if user.Banned && user.BanUntil != nil && !models.WindowActive(now, user.BanUntil) {
		if err := s.liftBan(ctx, &user); err != nil {
			return models.User{}, err
		}
		s.logger.Info().Str("user_id", userID).Msg("ban window expired, lazily cleared")
	}

	if user.MuteUntil != nil && !models.WindowActive(now, user.MuteUntil) {
		user.MuteUntil = nil
		user.UpdatedAt = now
		changed = true
	}

	if changed {
		if err := s.users.Save(ctx, &user); err != nil {
			return models.User{}, err
		}
	}

	return user, nil
}

func (s *moderationService) EnsureQuarantineRoom(ctx context.Context) (models.Room, error) {
	room, err := s.rooms.Get(ctx, models.QuarantineRoomID)
	if err == nil && !room.Deleted {
		return room, nil
	}
	if err != nil && !apperrors.Is(err, apperrors.CodeNotFound) {
		return models.Room{}, err
	}

	now := s.now()
	room = models.Room{
		ID:        models.QuarantineRoomID,
		Name:      "Quarantine",
		Kind:      models.RoomPrivate,
		OwnerID:   s.founderID,
		Members:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.rooms.Save(ctx, &room); err != nil {
		return models.Room{}, err
	}

	return room, nil
}
