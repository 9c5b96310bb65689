package models

import (
	"time"

	"github.com/google/uuid"
)

// Opinion is a short-form post without options or votes.
type Opinion struct {
	ID              uuid.UUID `json:"id" db:"id"`
	CreatorID       uuid.UUID `json:"creatorId" db:"creator_id"`
	CreatorUsername string    `json:"creatorUsername" db:"creator_username"`
	Text            string    `json:"text" db:"text"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	LikeCount       int       `json:"likeCount" db:"like_count"`
	CommentCount    int       `json:"commentCount" db:"comment_count"`
	TipCount        int       `json:"tipCount" db:"tip_count"`
}

// OpinionView is the session-relative projection of an opinion.
type OpinionView struct {
	*Opinion
	IsLiked bool `json:"isLiked"`
}

// FeedItemKind discriminates the two post shapes a feed can carry.
type FeedItemKind string

const (
	FeedItemPoll    FeedItemKind = "poll"
	FeedItemOpinion FeedItemKind = "opinion"
)

// FeedItem is a tagged union of the two post variants. Exactly one of Poll
// and Opinion is set, matching Kind.
type FeedItem struct {
	Kind    FeedItemKind `json:"kind"`
	Poll    *PollView    `json:"poll,omitempty"`
	Opinion *OpinionView `json:"opinion,omitempty"`
}

// PostedAt returns the creation time of whichever variant the item holds.
func (f *FeedItem) PostedAt() time.Time {
	if f.Kind == FeedItemPoll && f.Poll != nil {
		return f.Poll.CreatedAt
	}
	if f.Opinion != nil {
		return f.Opinion.CreatedAt
	}
	return time.Time{}
}
