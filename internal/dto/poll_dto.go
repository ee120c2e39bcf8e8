package dto

import (
	"time"

	"github.com/parleyhq/parley-api/internal/models"
)

// PollCreateRequest describes the payload to create a poll in a room.
type PollCreateRequest struct {
	RoomID    string   `json:"room_id" validate:"required,max=64"`
	Question  string   `json:"question" validate:"required,min=1,max=512"`
	Options   []string `json:"options" validate:"required,min=2,dive,required,max=256"`
	Anonymous bool     `json:"anonymous"`
}

// VoteRequest casts a vote for one option.
type VoteRequest struct {
	OptionIndex int `json:"option_index" validate:"min=0"`
}

// PollOptionResult is one tallied option.
type PollOptionResult struct {
	Option  string   `json:"option"`
	Votes   int      `json:"votes"`
	Percent float64  `json:"percent"`
	Voters  []string `json:"voters,omitempty"`
}

// PollResponse is the serialized representation of a poll with its tally.
type PollResponse struct {
	ID         string             `json:"id"`
	RoomID     string             `json:"room_id"`
	Question   string             `json:"question"`
	Options    []PollOptionResult `json:"options"`
	TotalVotes int                `json:"total_votes"`
	Anonymous  bool               `json:"anonymous"`
	CreatorID  string             `json:"creator_id"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewPollResponse converts a poll model into a tallied DTO. Voter ids are
// omitted for anonymous polls. 0/0 tallies as 0 percent.
func NewPollResponse(poll models.Poll) PollResponse {
	total := poll.TotalVotes()

	options := make([]PollOptionResult, 0, len(poll.Options))
	for index, option := range poll.Options {
		voters := poll.Votes[index]
		percent := 0.0
		if total > 0 {
			percent = float64(len(voters)) / float64(total) * 100
		}

		result := PollOptionResult{
			Option:  option,
			Votes:   len(voters),
			Percent: percent,
		}
		if !poll.Anonymous {
			result.Voters = voters
		}
		options = append(options, result)
	}

	return PollResponse{
		ID:         poll.ID,
		RoomID:     poll.RoomID,
		Question:   poll.Question,
		Options:    options,
		TotalVotes: total,
		Anonymous:  poll.Anonymous,
		CreatorID:  poll.CreatorID,
		CreatedAt:  poll.CreatedAt,
	}
}
