package models

import "time"

// Role defines the moderation hierarchy. Higher values outrank lower ones.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleVIP       Role = "vip"
	RoleMember    Role = "member"
)

var roleRank = map[Role]int{
	RoleAdmin:     4,
	RoleModerator: 3,
	RoleVIP:       2,
	RoleMember:    1,
}

// Rank returns the hierarchy position of the role; unknown roles rank lowest.
func (r Role) Rank() int {
	return roleRank[r]
}

// Outranks reports whether r sits strictly above other in the hierarchy.
func (r Role) Outranks(other Role) bool {
	return r.Rank() > other.Rank()
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// User is the persisted account record, keyed `user:{id}`.
type User struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	Role        Role       `json:"role"`
	Banned      bool       `json:"banned"`
	BanUntil    *time.Time `json:"ban_until,omitempty"`
	MuteUntil   *time.Time `json:"mute_until,omitempty"`
	Friends     []string   `json:"friends,omitempty"`
	Blocked     []string   `json:"blocked,omitempty"`
	Deleted     bool       `json:"deleted"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// WindowActive evaluates a lazy moderation window: nil means no window was
// set, a past timestamp means the window has expired.
func WindowActive(now time.Time, until *time.Time) bool {
	return until != nil && now.Before(*until)
}

// BanActive reports whether the ban still applies at the given instant.
// A banned user with no expiry is banned permanently.
func (u *User) BanActive(now time.Time) bool {
	if !u.Banned {
		return false
	}
	return u.BanUntil == nil || WindowActive(now, u.BanUntil)
}

// MuteActive reports whether the mute still applies at the given instant.
func (u *User) MuteActive(now time.Time) bool {
	return WindowActive(now, u.MuteUntil)
}

// HasBlocked reports whether the user has blocked the target account.
func (u *User) HasBlocked(target string) bool {
	for _, id := range u.Blocked {
		if id == target {
			return true
		}
	}
	return false
}
