package dto

import (
	"time"

	"github.com/parleyhq/parley-api/internal/models"
)

// DMCreateRequest opens (or returns) the channel with another user.
type DMCreateRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
}

// DMSendRequest posts a message into a direct channel.
type DMSendRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
	Kind    string `json:"kind" validate:"omitempty,oneof=text voice video"`
}

// DMResponse is the serialized representation of a direct channel from one
// participant's point of view.
type DMResponse struct {
	ID           string    `json:"id"`
	Counterpart  string    `json:"counterpart"`
	LastMessage  string    `json:"last_message,omitempty"`
	Unread       int       `json:"unread"`
	LastRead     time.Time `json:"last_read"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// NewDMResponse converts a channel model into a DTO for the given viewer.
func NewDMResponse(channel models.DirectChannel, viewerID string) DMResponse {
	return DMResponse{
		ID:           channel.ID,
		Counterpart:  channel.Counterpart(viewerID),
		LastMessage:  channel.LastMessage,
		Unread:       channel.Unread[viewerID],
		LastRead:     channel.LastRead[viewerID],
		CreatedAt:    channel.CreatedAt,
		LastActivity: channel.UpdatedAt,
	}
}

// NewDMResponseSlice converts a slice of channel models into DTOs.
func NewDMResponseSlice(channels []models.DirectChannel, viewerID string) []DMResponse {
	out := make([]DMResponse, 0, len(channels))
	for _, channel := range channels {
		out = append(out, NewDMResponse(channel, viewerID))
	}
	return out
}
