package models

import (
	"time"

	"github.com/google/uuid"
)

// Ballot records a viewer's single vote on a poll. At most one ballot exists
// per (poll, voter) pair; the option is set exactly once and never changes.
type Ballot struct {
	PollID    uuid.UUID `json:"pollId" db:"poll_id"`
	VoterID   uuid.UUID `json:"voterId" db:"voter_id"`
	OptionID  uuid.UUID `json:"optionId" db:"option_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// LikeTargetKind identifies which post variant a like or tip lands on.
type LikeTargetKind string

const (
	LikePoll    LikeTargetKind = "poll"
	LikeOpinion LikeTargetKind = "opinion"
)

// StatusResponse is a generic success/failure envelope.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
