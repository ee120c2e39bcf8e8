package dto

import (
	"time"

	"github.com/parleyhq/parley-api/internal/models"
)

// RoomCreateRequest describes the payload to create a room.
type RoomCreateRequest struct {
	Name string `json:"name" validate:"required,min=1,max=128"`
	Kind string `json:"kind" validate:"omitempty,oneof=public private"`
}

// RoomInviteRequest describes the payload to invite a user into a room.
type RoomInviteRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
}

// MarkReadRequest clears per-user room counters.
type MarkReadRequest struct {
	ClearMentions  bool `json:"clear_mentions"`
	ClearReactions bool `json:"clear_reactions"`
}

// PinRequest pins a message in a room.
type PinRequest struct {
	MessageID string `json:"message_id" validate:"required,max=64"`
}

// UnpinRequest unpins a message; an empty id targets the current pin.
type UnpinRequest struct {
	MessageID string `json:"message_id" validate:"omitempty,max=64"`
}

// RoomResponse is the serialized representation of a room from one user's
// point of view: the per-user counters are flattened for that viewer.
type RoomResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Kind            string    `json:"kind"`
	OwnerID         string    `json:"owner_id"`
	Members         []string  `json:"members"`
	PinnedMessageID string    `json:"pinned_message_id,omitempty"`
	PinHistory      []string  `json:"pin_history,omitempty"`
	Unread          int       `json:"unread"`
	UnreadMentions  int       `json:"unread_mentions"`
	UnreadReactions int       `json:"unread_reactions"`
	LastMessage     string    `json:"last_message,omitempty"`
	LastActivity    time.Time `json:"last_activity"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewRoomResponse converts a room model into a DTO for the given viewer.
func NewRoomResponse(room models.Room, viewerID string) RoomResponse {
	return RoomResponse{
		ID:              room.ID,
		Name:            room.Name,
		Kind:            string(room.Kind),
		OwnerID:         room.OwnerID,
		Members:         room.Members,
		PinnedMessageID: room.CurrentPin(),
		PinHistory:      room.PinHistory,
		Unread:          room.Unread[viewerID],
		UnreadMentions:  room.UnreadMentions[viewerID],
		UnreadReactions: room.UnreadReactions[viewerID],
		LastMessage:     room.LastMessage,
		LastActivity:    room.LastActivity,
		CreatedAt:       room.CreatedAt,
	}
}

// NewRoomResponseSlice converts a slice of room models into DTOs.
func NewRoomResponseSlice(rooms []models.Room, viewerID string) []RoomResponse {
	out := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, NewRoomResponse(room, viewerID))
	}
	return out
}
