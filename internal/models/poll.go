package models

import (
	"time"

	"github.com/google/uuid"
)

// PledgeOutcome is the creator's post-deadline decision on a pledged poll.
type PledgeOutcome string

const (
	PledgePending     PledgeOutcome = "pending"
	PledgeAccepted    PledgeOutcome = "accepted"
	PledgeTippedCrowd PledgeOutcome = "tipped_crowd"
)

// MaxOptionTextLen bounds the display text of a poll option.
const MaxOptionTextLen = 120

type PollOption struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Text          string    `json:"text" db:"text"`
	Votes         int       `json:"votes" db:"votes"`
	MediaURLs     []string  `json:"mediaUrls,omitempty"`
	AffiliateLink string    `json:"affiliateLink,omitempty" db:"affiliate_link"`
}

// Poll is a vote-bearing post. TotalVotes is derived and kept equal to the
// sum of the option counts after every vote mutation. PledgeAmount is in
// major currency units (dollars).
type Poll struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	CreatorID       uuid.UUID     `json:"creatorId" db:"creator_id"`
	CreatorUsername string        `json:"creatorUsername" db:"creator_username"`
	Question        string        `json:"question" db:"question"`
	Options         []*PollOption `json:"options"`
	TotalVotes      int           `json:"totalVotes" db:"total_votes"`
	Deadline        time.Time     `json:"deadline" db:"deadline"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
	PledgeAmount    float64       `json:"pledgeAmount,omitempty" db:"pledge_amount"`
	PledgeOutcome   PledgeOutcome `json:"pledgeOutcome,omitempty" db:"pledge_outcome"`
	LikeCount       int           `json:"likeCount" db:"like_count"`
	CommentCount    int           `json:"commentCount" db:"comment_count"`
	TipCount        int           `json:"tipCount" db:"tip_count"`
}

// Closed reports whether the poll's deadline has passed; a closed poll is
// read-only for voting.
func (p *Poll) Closed(now time.Time) bool {
	return !now.Before(p.Deadline)
}

// Option returns the option with the given ID, or nil.
func (p *Poll) Option(id uuid.UUID) *PollOption {
	for _, opt := range p.Options {
		if opt.ID == id {
			return opt
		}
	}
	return nil
}

// OptionResult is one option's share of the vote, revealed only once the
// viewer has voted or the poll has closed.
type OptionResult struct {
	OptionID   uuid.UUID `json:"optionId"`
	Votes      int       `json:"votes"`
	Percentage int       `json:"percentage"`
}

// PollView is the session-relative projection of a poll: the per-viewer
// fields are computed at read time and never stored on the poll itself.
type PollView struct {
	*Poll
	IsVoted       bool            `json:"isVoted"`
	VotedOptionID *uuid.UUID      `json:"votedOptionId,omitempty"`
	IsLiked       bool            `json:"isLiked"`
	Results       []*OptionResult `json:"results,omitempty"`
}
