package models

import "time"

// MessageKind distinguishes message payload types.
type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageVoice MessageKind = "voice"
	MessageVideo MessageKind = "video"
	MessagePoll  MessageKind = "poll"
)

// DeletedContentPlaceholder replaces the content of messages purged by an
// admin while the record itself is retained for audit.
const DeletedContentPlaceholder = "[removed]"

// Message is the persisted message record, keyed `message:{id}`. Content is
// ciphertext when the sender held a session key, plaintext otherwise.
type Message struct {
	ID        string              `json:"id"`
	RoomID    string              `json:"room_id"`
	SenderID  string              `json:"sender_id"`
	Content   string              `json:"content"`
	Kind      MessageKind         `json:"kind"`
	ReplyTo   string              `json:"reply_to,omitempty"`
	Reactions map[string][]string `json:"reactions,omitempty"`
	Mentions  []string            `json:"mentions,omitempty"`
	Edited    bool                `json:"edited"`
	EditedAt  *time.Time          `json:"edited_at,omitempty"`
	Deleted   bool                `json:"deleted"`
	CreatedAt time.Time           `json:"created_at"`
}

// HasReaction reports whether the user already reacted with the emoji.
func (m *Message) HasReaction(emoji, userID string) bool {
	for _, id := range m.Reactions[emoji] {
		if id == userID {
			return true
		}
	}
	return false
}

// AddReaction records the reaction; returns false when it already exists.
func (m *Message) AddReaction(emoji, userID string) bool {
	if m.HasReaction(emoji, userID) {
		return false
	}
	if m.Reactions == nil {
		m.Reactions = make(map[string][]string)
	}
	m.Reactions[emoji] = append(m.Reactions[emoji], userID)
	return true
}

// RemoveReaction drops the reaction; returns false when it was absent. An
// emoji key whose set becomes empty is removed from the map entirely.
func (m *Message) RemoveReaction(emoji, userID string) bool {
	users, ok := m.Reactions[emoji]
	if !ok {
		return false
	}
	for i, id := range users {
		if id == userID {
			users = append(users[:i], users[i+1:]...)
			if len(users) == 0 {
				delete(m.Reactions, emoji)
			} else {
				m.Reactions[emoji] = users
			}
			return true
		}
	}
	return false
}
