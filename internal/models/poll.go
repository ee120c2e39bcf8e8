package models

import "time"

// Poll is the persisted poll record, keyed `poll:{id}` where the id equals
// the carrier message id.
type Poll struct {
	ID        string           `json:"id"`
	RoomID    string           `json:"room_id"`
	Question  string           `json:"question"`
	Options   []string         `json:"options"`
	Votes     map[int][]string `json:"votes,omitempty"`
	Anonymous bool             `json:"anonymous"`
	CreatorID string           `json:"creator_id"`
	Deleted   bool             `json:"deleted"`
	CreatedAt time.Time        `json:"created_at"`
}

// VoterOption returns the option index the user voted for, or -1. A user
// appears in at most one option's vote set.
func (p *Poll) VoterOption(userID string) int {
	for index, voters := range p.Votes {
		for _, id := range voters {
			if id == userID {
				return index
			}
		}
	}
	return -1
}

// TotalVotes counts voters across all options.
func (p *Poll) TotalVotes() int {
	total := 0
	for _, voters := range p.Votes {
		total += len(voters)
	}
	return total
}

// RecordVote appends the user to the chosen option's vote set. Vote sets are
// append-only; there is no retraction.
func (p *Poll) RecordVote(optionIndex int, userID string) {
	if p.Votes == nil {
		p.Votes = make(map[int][]string)
	}
	p.Votes[optionIndex] = append(p.Votes[optionIndex], userID)
}
