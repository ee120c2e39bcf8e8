package models

import "time"

// RoomKind distinguishes room behaviours.
type RoomKind string

const (
	RoomPublic    RoomKind = "public"
	RoomPrivate   RoomKind = "private"
	RoomDirect    RoomKind = "direct"
	RoomFavorites RoomKind = "favorites"
)

// QuarantineRoomID is the fixed identity of the singleton room banned users
// are confined to. Resolved through the room repository, never by name.
const QuarantineRoomID = "quarantine"

// Room is the persisted room record, keyed `room:{id}`. Per-user counters
// live on the record itself; updates are read-modify-write and best-effort
// under concurrent writers.
type Room struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Kind            RoomKind             `json:"kind"`
	OwnerID         string               `json:"owner_id"`
	Members         []string             `json:"members"`
	PinHistory      []string             `json:"pin_history,omitempty"`
	Unread          map[string]int       `json:"unread,omitempty"`
	UnreadMentions  map[string]int       `json:"unread_mentions,omitempty"`
	UnreadReactions map[string]int       `json:"unread_reactions,omitempty"`
	LastRead        map[string]time.Time `json:"last_read,omitempty"`
	LastActivity    time.Time            `json:"last_activity"`
	LastMessage     string               `json:"last_message,omitempty"`
	Deleted         bool                 `json:"deleted"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// HasMember reports whether the user is in the membership set.
func (r *Room) HasMember(userID string) bool {
	for _, id := range r.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// AddMember adds the user to the membership set; duplicates are ignored.
func (r *Room) AddMember(userID string) bool {
	if r.HasMember(userID) {
		return false
	}
	r.Members = append(r.Members, userID)
	return true
}

// RemoveMember drops the user from the membership set.
func (r *Room) RemoveMember(userID string) bool {
	for i, id := range r.Members {
		if id == userID {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return true
		}
	}
	return false
}

// CurrentPin returns the top of the pin history stack, or "" when none.
func (r *Room) CurrentPin() string {
	if len(r.PinHistory) == 0 {
		return ""
	}
	return r.PinHistory[len(r.PinHistory)-1]
}

// IncrementUnread bumps the per-user unread counter.
func (r *Room) IncrementUnread(userID string) {
	if r.Unread == nil {
		r.Unread = make(map[string]int)
	}
	r.Unread[userID]++
}

// IncrementMentions bumps the per-user unread-mention counter.
func (r *Room) IncrementMentions(userID string) {
	if r.UnreadMentions == nil {
		r.UnreadMentions = make(map[string]int)
	}
	r.UnreadMentions[userID]++
}

// IncrementReactions bumps the per-user unread-reaction counter.
func (r *Room) IncrementReactions(userID string) {
	if r.UnreadReactions == nil {
		r.UnreadReactions = make(map[string]int)
	}
	r.UnreadReactions[userID]++
}
