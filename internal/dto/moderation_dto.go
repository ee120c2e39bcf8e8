package dto

import (
	"time"

	"github.com/parleyhq/parley-api/internal/models"
)

// BanRequest bans a user; zero hours means permanent.
type BanRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
	Hours  int    `json:"hours" validate:"min=0,max=8760"`
}

// MuteRequest mutes a user for a bounded window.
type MuteRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
	Hours  int    `json:"hours" validate:"required,min=1,max=24"`
}

// UserTargetRequest identifies the subject of unban/unmute/purge/block calls.
type UserTargetRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
}

// RoleChangeRequest assigns a role to a user.
type RoleChangeRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
	Role   string `json:"role" validate:"required,oneof=admin moderator vip member"`
}

// UserResponse is the serialized moderation view of an account.
type UserResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	Role        string     `json:"role"`
	Banned      bool       `json:"banned"`
	BanUntil    *time.Time `json:"ban_until,omitempty"`
	MuteUntil   *time.Time `json:"mute_until,omitempty"`
	Deleted     bool       `json:"deleted"`
}

// NewUserResponse converts a user model into a moderation DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		Banned:      user.Banned,
		BanUntil:    user.BanUntil,
		MuteUntil:   user.MuteUntil,
		Deleted:     user.Deleted,
	}
}
