package apperrors

// Domain errors shared across services.
var (
	ErrUserNotFound     = NotFound("user not found")
	ErrRoomNotFound     = NotFound("room not found")
	ErrMessageNotFound  = NotFound("message not found")
	ErrPollNotFound     = NotFound("poll not found")
	ErrChannelNotFound  = NotFound("direct channel not found")
	ErrNotRoomMember    = Forbidden("user is not a member of the room")
	ErrNotAuthor        = Forbidden("only the author may perform this operation")
	ErrFounderImmune    = Forbidden("the founder account cannot be targeted")
	ErrBanImmune        = Forbidden("target account is immune to bans")
	ErrSenderBanned     = Banned("sender is banned")
	ErrSenderMuted      = Muted("sender is muted")
	ErrSenderDeleted    = Forbidden("sender account is deleted")
	ErrAlreadyVoted     = Conflict("user has already voted in this poll")
	ErrSelfChannel      = InvalidArg("cannot open a direct channel with yourself")
	ErrBlockedChannel   = Forbidden("direct channel blocked by one of the participants")
	ErrEmptyContent     = InvalidArg("message content must not be empty")
	ErrMuteWindowTooBig = InvalidArg("mute duration cannot exceed 24 hours")
)
