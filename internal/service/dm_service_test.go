package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley-api/internal/dto"
	"github.com/parleyhq/parley-api/internal/models"
	"github.com/parleyhq/parley-api/pkg/apperrors"
)

func TestGetOrCreateCanonicalChannel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "u1", "alice", models.RoleMember)
	env.seedUser(t, "u2", "bob", models.RoleMember)

	first, err := env.dmSvc.GetOrCreate(ctx, "u1", "u2")
	require.NoError(t, err)
	require.Equal(t, models.DirectChannelID("u1", "u2"), first.ID)
	require.Equal(t, "u2", first.Counterpart)

	// Opening from the other side resolves the same channel.
	second, err := env.dmSvc.GetOrCreate(ctx, "u2", "u1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "u1", second.Counterpart)
}

func TestGetOrCreateRejectsSelfAndBlocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "u1", "alice", models.RoleMember)
	env.seedUser(t, "u2", "bob", models.RoleMember)

	_, err := env.dmSvc.GetOrCreate(ctx, "u1", "u1")
	require.ErrorIs(t, err, apperrors.ErrSelfChannel)

	require.NoError(t, env.moderation.Block(ctx, "u2", "u1"))

	// A block in either direction closes the channel path.
	_, err = env.dmSvc.GetOrCreate(ctx, "u1", "u2")
	require.ErrorIs(t, err, apperrors.ErrBlockedChannel)
	_, err = env.dmSvc.GetOrCreate(ctx, "u2", "u1")
	require.ErrorIs(t, err, apperrors.ErrBlockedChannel)
}

func TestDMSendBumpsCounterpartUnread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "u1", "alice", models.RoleMember)
	env.seedUser(t, "u2", "bob", models.RoleMember)

	channel, err := env.dmSvc.GetOrCreate(ctx, "u1", "u2")
	require.NoError(t, err)

	_, err = env.dmSvc.Send(ctx, channel.ID, "u1", "", dto.DMSendRequest{Content: "hey"})
	require.NoError(t, err)
	_, err = env.dmSvc.Send(ctx, channel.ID, "u1", "", dto.DMSendRequest{Content: "you there?"})
	require.NoError(t, err)

	stored, err := env.channels.Get(ctx, channel.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.Unread["u2"])
	require.Zero(t, stored.Unread["u1"])
	require.Equal(t, "you there?", stored.LastMessage)

	require.NoError(t, env.dmSvc.MarkRead(ctx, channel.ID, "u2"))
	stored, err = env.channels.Get(ctx, channel.ID)
	require.NoError(t, err)
	require.Zero(t, stored.Unread["u2"])
}

func TestDMSendRequiresParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "u1", "alice", models.RoleMember)
	env.seedUser(t, "u2", "bob", models.RoleMember)
	env.seedUser(t, "u3", "carol", models.RoleMember)

	channel, err := env.dmSvc.GetOrCreate(ctx, "u1", "u2")
	require.NoError(t, err)

	_, err = env.dmSvc.Send(ctx, channel.ID, "u3", "", dto.DMSendRequest{Content: "intruding"})
	require.Error(t, err)
	require.Equal(t, apperrors.CodePermissionDenied, apperrors.CodeOf(err))

	_, err = env.dmSvc.ListMessages(ctx, channel.ID, "u3", 0)
	require.Error(t, err)
}

func TestDMMessagesDecryptOnRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "u1", "alice", models.RoleMember)
	env.seedUser(t, "u2", "bob", models.RoleMember)
	require.NoError(t, env.cipher.StartSession("sess-1"))

	channel, err := env.dmSvc.GetOrCreate(ctx, "u1", "u2")
	require.NoError(t, err)

	sent, err := env.dmSvc.Send(ctx, channel.ID, "u1", "sess-1", dto.DMSendRequest{Content: "just between us"})
	require.NoError(t, err)
	require.Equal(t, "just between us", sent.Content)

	stored, err := env.messages.Get(ctx, sent.ID)
	require.NoError(t, err)
	require.NotEqual(t, "just between us", stored.Content)

	listed, err := env.dmSvc.ListMessages(ctx, channel.ID, "u2", 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "just between us", listed[0].Content)
}

func TestHideIsPerViewer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "u1", "alice", models.RoleMember)
	env.seedUser(t, "u2", "bob", models.RoleMember)

	channel, err := env.dmSvc.GetOrCreate(ctx, "u1", "u2")
	require.NoError(t, err)
	_, err = env.dmSvc.Send(ctx, channel.ID, "u1", "", dto.DMSendRequest{Content: "keep this"})
	require.NoError(t, err)

	require.NoError(t, env.dmSvc.Hide(ctx, channel.ID, "u1"))

	mine, err := env.dmSvc.List(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, mine)

	theirs, err := env.dmSvc.List(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, theirs, 1)

	// The other side can still read the history.
	listed, err := env.dmSvc.ListMessages(ctx, channel.ID, "u2", 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestNewMessageResurfacesHiddenChannel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "u1", "alice", models.RoleMember)
	env.seedUser(t, "u2", "bob", models.RoleMember)

	channel, err := env.dmSvc.GetOrCreate(ctx, "u1", "u2")
	require.NoError(t, err)

	require.NoError(t, env.dmSvc.Hide(ctx, channel.ID, "u1"))

	_, err = env.dmSvc.Send(ctx, channel.ID, "u2", "", dto.DMSendRequest{Content: "knock knock"})
	require.NoError(t, err)

	mine, err := env.dmSvc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
}

func TestReopeningHiddenChannelUnhides(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "u1", "alice", models.RoleMember)
	env.seedUser(t, "u2", "bob", models.RoleMember)

	channel, err := env.dmSvc.GetOrCreate(ctx, "u1", "u2")
	require.NoError(t, err)
	require.NoError(t, env.dmSvc.Hide(ctx, channel.ID, "u1"))

	_, err = env.dmSvc.GetOrCreate(ctx, "u1", "u2")
	require.NoError(t, err)

	mine, err := env.dmSvc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
}

func TestBannedSenderCannotDM(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "admin-1", "root", models.RoleAdmin)
	env.seedUser(t, "u1", "alice", models.RoleMember)
	env.seedUser(t, "u2", "bob", models.RoleMember)

	channel, err := env.dmSvc.GetOrCreate(ctx, "u1", "u2")
	require.NoError(t, err)

	require.NoError(t, env.moderation.Ban(ctx, "u1", "admin-1", 0))

	_, err = env.dmSvc.Send(ctx, channel.ID, "u1", "", dto.DMSendRequest{Content: "hello?"})
	require.ErrorIs(t, err, apperrors.ErrSenderBanned)
}

func TestDMListLimitClampsToConfiguredMax(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "u1", "alice", models.RoleMember)
	env.seedUser(t, "u2", "bob", models.RoleMember)

	channel, err := env.dmSvc.GetOrCreate(ctx, "u1", "u2")
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := env.dmSvc.Send(ctx, channel.ID, "u1", "", dto.DMSendRequest{Content: content})
		require.NoError(t, err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewDMService(env.channels, env.messages, env.users, env.moderation, env.cipher, validate, NewEventPublisher(nil, zerolog.Nop()), 2, zerolog.Nop())

	listed, err := svc.ListMessages(ctx, channel.ID, "u2", 500)
	require.NoError(t, err)
	require.Len(t, listed, 2)
}
