package dto

import (
	"time"

	"github.com/parleyhq/parley-api/internal/models"
)

// MessageSendRequest represents the payload clients post into a room.
type MessageSendRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
	Kind    string `json:"kind" validate:"omitempty,oneof=text voice video poll"`
	ReplyTo string `json:"reply_to" validate:"omitempty,max=64"`
}

// MessageEditRequest replaces the content of an existing message.
type MessageEditRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

// ReactionRequest adds or removes an emoji reaction.
type ReactionRequest struct {
	Emoji string `json:"emoji" validate:"required,min=1,max=32"`
}

// MessageResponse is the serialized representation of a message. Sender
// fields reflect the sender's current profile, not a snapshot.
type MessageResponse struct {
	ID           string              `json:"id"`
	RoomID       string              `json:"room_id"`
	SenderID     string              `json:"sender_id"`
	SenderName   string              `json:"sender_name"`
	SenderAvatar string              `json:"sender_avatar,omitempty"`
	Content      string              `json:"content"`
	Kind         string              `json:"kind"`
	ReplyTo      string              `json:"reply_to,omitempty"`
	Reactions    map[string][]string `json:"reactions,omitempty"`
	Mentions     []string            `json:"mentions,omitempty"`
	Edited       bool                `json:"edited"`
	EditedAt     *time.Time          `json:"edited_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// NewMessageResponse converts a message model into a DTO. The content
// argument carries the decrypted body; sender supplies the live profile.
func NewMessageResponse(message models.Message, sender models.User, content string) MessageResponse {
	return MessageResponse{
		ID:           message.ID,
		RoomID:       message.RoomID,
		SenderID:     message.SenderID,
		SenderName:   sender.DisplayName,
		SenderAvatar: sender.AvatarURL,
		Content:      content,
		Kind:         string(message.Kind),
		ReplyTo:      message.ReplyTo,
		Reactions:    message.Reactions,
		Mentions:     message.Mentions,
		Edited:       message.Edited,
		EditedAt:     message.EditedAt,
		CreatedAt:    message.CreatedAt,
	}
}
