package models

import (
	"sort"
	"strings"
	"time"
)

// DirectChannel is the persisted pairwise channel record, keyed `dm:{id}`.
// Hiding a channel is per-viewer; the record and its messages persist for
// the other participant.
type DirectChannel struct {
	ID           string               `json:"id"`
	Participants []string             `json:"participants"`
	LastMessage  string               `json:"last_message,omitempty"`
	Unread       map[string]int       `json:"unread,omitempty"`
	LastRead     map[string]time.Time `json:"last_read,omitempty"`
	Hidden       map[string]bool      `json:"hidden,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// DirectChannelID derives the canonical channel id for a participant pair.
// The lexicographic sort guarantees at most one channel per pair.
func DirectChannelID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

// HasParticipant reports whether the user belongs to the channel.
func (d *DirectChannel) HasParticipant(userID string) bool {
	for _, id := range d.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// Counterpart returns the other participant's id.
func (d *DirectChannel) Counterpart(userID string) string {
	for _, id := range d.Participants {
		if id != userID {
			return id
		}
	}
	return ""
}

// IncrementUnread bumps the per-user unread counter.
func (d *DirectChannel) IncrementUnread(userID string) {
	if d.Unread == nil {
		d.Unread = make(map[string]int)
	}
	d.Unread[userID]++
}
