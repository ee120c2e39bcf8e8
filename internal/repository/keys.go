package repository

// Persisted layout: every entity is a single record keyed `{type}:{id}`;
// reverse indices are append-only id lists stored as separate records.
const (
	userKeyPrefix    = "user:"
	roomKeyPrefix    = "room:"
	messageKeyPrefix = "message:"
	pollKeyPrefix    = "poll:"
	dmKeyPrefix      = "dm:"

	roomMessagesPrefix = "room_messages:"
	dmMessagesPrefix   = "dm_messages:"
)

func userKey(id string) string    { return userKeyPrefix + id }
func roomKey(id string) string    { return roomKeyPrefix + id }
func messageKey(id string) string { return messageKeyPrefix + id }
func pollKey(id string) string    { return pollKeyPrefix + id }
func dmKey(id string) string      { return dmKeyPrefix + id }

func roomMessagesKey(roomID string) string { return roomMessagesPrefix + roomID }
func dmMessagesKey(dmID string) string     { return dmMessagesPrefix + dmID }
