package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley-api/internal/dto"
	"github.com/parleyhq/parley-api/internal/models"
	"github.com/parleyhq/parley-api/pkg/apperrors"
)

func TestBanConfinesUserToQuarantine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "admin-1", "alice", models.RoleAdmin)
	env.seedUser(t, "target-1", "bob", models.RoleMember)
	env.seedRoom(t, "general", "admin-1", models.RoomPublic, "admin-1", "target-1")
	env.seedRoom(t, "lounge", "admin-1", models.RoomPublic, "target-1")

	require.NoError(t, env.moderation.Ban(ctx, "target-1", "admin-1", 0))

	target, err := env.users.Get(ctx, "target-1")
	require.NoError(t, err)
	require.True(t, target.Banned)
	require.Nil(t, target.BanUntil)

	quarantine, err := env.rooms.Get(ctx, models.QuarantineRoomID)
	require.NoError(t, err)
	require.True(t, quarantine.HasMember("target-1"))

	general, err := env.rooms.Get(ctx, "general")
	require.NoError(t, err)
	require.False(t, general.HasMember("target-1"))

	lounge, err := env.rooms.Get(ctx, "lounge")
	require.NoError(t, err)
	require.False(t, lounge.HasMember("target-1"))
}

func TestBannedUserSeesOnlyQuarantine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "admin-1", "alice", models.RoleAdmin)
	env.seedUser(t, "target-1", "bob", models.RoleMember)
	env.seedRoom(t, "general", "admin-1", models.RoomPublic, "admin-1", "target-1")

	require.NoError(t, env.moderation.Ban(ctx, "target-1", "admin-1", 2))

	rooms, err := env.roomSvc.ListForUser(ctx, "target-1")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, models.QuarantineRoomID, rooms[0].ID)
}

func TestBannedUserCannotSendOutsideQuarantine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "admin-1", "alice", models.RoleAdmin)
	env.seedUser(t, "target-1", "bob", models.RoleMember)
	env.seedRoom(t, "general", "admin-1", models.RoomPublic, "target-1")

	require.NoError(t, env.moderation.Ban(ctx, "target-1", "admin-1", 0))

	_, err := env.messageSvc.Send(ctx, "general", "target-1", "", dto.MessageSendRequest{Content: "hello"})
	require.ErrorIs(t, err, apperrors.ErrSenderBanned)

	// Quarantine remains writable.
	_, err = env.messageSvc.Send(ctx, models.QuarantineRoomID, "target-1", "", dto.MessageSendRequest{Content: "let me out"})
	require.NoError(t, err)
}

func TestUnbanReleasesFromQuarantine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "admin-1", "alice", models.RoleAdmin)
	env.seedUser(t, "target-1", "bob", models.RoleMember)
	env.seedRoom(t, "general", "admin-1", models.RoomPublic, "target-1")

	require.NoError(t, env.moderation.Ban(ctx, "target-1", "admin-1", 0))
	require.NoError(t, env.moderation.Unban(ctx, "target-1", "admin-1"))

	target, err := env.users.Get(ctx, "target-1")
	require.NoError(t, err)
	require.False(t, target.Banned)

	quarantine, err := env.rooms.Get(ctx, models.QuarantineRoomID)
	require.NoError(t, err)
	require.False(t, quarantine.HasMember("target-1"))

	// Prior memberships stay revoked until the user joins again.
	general, err := env.rooms.Get(ctx, "general")
	require.NoError(t, err)
	require.False(t, general.HasMember("target-1"))
}

func TestExpiredBanClearsLazily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "admin-1", "alice", models.RoleAdmin)
	target := env.seedUser(t, "target-1", "bob", models.RoleMember)

	past := time.Now().Add(-time.Hour)
	target.Banned = true
	target.BanUntil = &past
	require.NoError(t, env.users.Save(ctx, &target))

	refreshed, err := env.moderation.Refresh(ctx, "target-1")
	require.NoError(t, err)
	require.False(t, refreshed.Banned)
	require.Nil(t, refreshed.BanUntil)
}

func TestExpiredMuteClearsLazily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	target := env.seedUser(t, "target-1", "bob", models.RoleMember)
	past := time.Now().Add(-time.Minute)
	target.MuteUntil = &past
	require.NoError(t, env.users.Save(ctx, &target))

	refreshed, err := env.moderation.Refresh(ctx, "target-1")
	require.NoError(t, err)
	require.Nil(t, refreshed.MuteUntil)

	stored, err := env.users.Get(ctx, "target-1")
	require.NoError(t, err)
	require.Nil(t, stored.MuteUntil)
}

func TestFounderIsImmune(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "admin-1", "alice", models.RoleAdmin)
	env.seedUser(t, testFounderID, "founder", models.RoleAdmin)

	require.ErrorIs(t, env.moderation.Ban(ctx, testFounderID, "admin-1", 0), apperrors.ErrFounderImmune)
	require.ErrorIs(t, env.moderation.Mute(ctx, testFounderID, "admin-1", 1), apperrors.ErrFounderImmune)
	require.ErrorIs(t, env.moderation.PurgeUser(ctx, testFounderID, "admin-1"), apperrors.ErrFounderImmune)
}

func TestVIPCannotBeBanned(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "admin-1", "alice", models.RoleAdmin)
	env.seedUser(t, "vip-1", "carol", models.RoleVIP)

	require.ErrorIs(t, env.moderation.Ban(ctx, "vip-1", "admin-1", 0), apperrors.ErrBanImmune)

	// VIPs can still be muted.
	require.NoError(t, env.moderation.Mute(ctx, "vip-1", "admin-1", 2))
}

func TestModeratorCannotActOnPeersOrAbove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "mod-1", "mallory", models.RoleModerator)
	env.seedUser(t, "mod-2", "maude", models.RoleModerator)
	env.seedUser(t, "admin-1", "alice", models.RoleAdmin)
	env.seedUser(t, "member-1", "bob", models.RoleMember)

	require.Error(t, env.moderation.Ban(ctx, "mod-2", "mod-1", 0))
	require.Error(t, env.moderation.Ban(ctx, "admin-1", "mod-1", 0))
	require.NoError(t, env.moderation.Ban(ctx, "member-1", "mod-1", 0))
}

func TestMuteWindowBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "admin-1", "alice", models.RoleAdmin)
	env.seedUser(t, "member-1", "bob", models.RoleMember)

	require.ErrorIs(t, env.moderation.Mute(ctx, "member-1", "admin-1", 0), apperrors.ErrMuteWindowTooBig)
	require.ErrorIs(t, env.moderation.Mute(ctx, "member-1", "admin-1", 25), apperrors.ErrMuteWindowTooBig)
	require.NoError(t, env.moderation.Mute(ctx, "member-1", "admin-1", 24))
}

func TestSetRoleIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "admin-1", "alice", models.RoleAdmin)
	env.seedUser(t, "mod-1", "mallory", models.RoleModerator)
	env.seedUser(t, "member-1", "bob", models.RoleMember)

	require.Error(t, env.moderation.SetRole(ctx, "member-1", models.RoleVIP, "mod-1"))
	require.NoError(t, env.moderation.SetRole(ctx, "member-1", models.RoleVIP, "admin-1"))

	member, err := env.users.Get(ctx, "member-1")
	require.NoError(t, err)
	require.Equal(t, models.RoleVIP, member.Role)
}

func TestPurgeTombstonesMessagesAndMemberships(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "admin-1", "alice", models.RoleAdmin)
	env.seedUser(t, "target-1", "bob", models.RoleMember)
	env.seedRoom(t, "general", "admin-1", models.RoomPublic, "admin-1", "target-1")

	sent, err := env.messageSvc.Send(ctx, "general", "target-1", "", dto.MessageSendRequest{Content: "to be purged"})
	require.NoError(t, err)

	require.NoError(t, env.moderation.PurgeUser(ctx, "target-1", "admin-1"))

	target, err := env.users.Get(ctx, "target-1")
	require.NoError(t, err)
	require.True(t, target.Deleted)

	message, err := env.messages.Get(ctx, sent.ID)
	require.NoError(t, err)
	require.True(t, message.Deleted)
	require.Equal(t, models.DeletedContentPlaceholder, message.Content)

	general, err := env.rooms.Get(ctx, "general")
	require.NoError(t, err)
	require.False(t, general.HasMember("target-1"))

	// Deleted senders are rejected on send.
	_, err = env.messageSvc.Send(ctx, "general", "target-1", "", dto.MessageSendRequest{Content: "still here?"})
	require.ErrorIs(t, err, apperrors.ErrSenderDeleted)
}

func TestBlockAndUnblock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedUser(t, "u1", "alice", models.RoleMember)
	env.seedUser(t, "u2", "bob", models.RoleMember)

	require.Error(t, env.moderation.Block(ctx, "u1", "u1"))
	require.NoError(t, env.moderation.Block(ctx, "u1", "u2"))
	// Blocking twice is a no-op, not an error.
	require.NoError(t, env.moderation.Block(ctx, "u1", "u2"))

	user, err := env.users.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"u2"}, user.Blocked)

	require.NoError(t, env.moderation.Unblock(ctx, "u1", "u2"))
	// Unblocking an absent entry is also success.
	require.NoError(t, env.moderation.Unblock(ctx, "u1", "u2"))

	user, err = env.users.Get(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, user.Blocked)
}
