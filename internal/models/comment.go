package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment belongs to a poll or an opinion. Comments are append-only; there
// is no edit or delete path. Reads are newest-first.
type Comment struct {
	ID             uuid.UUID `json:"id" db:"id"`
	PostID         uuid.UUID `json:"postId" db:"post_id"`
	AuthorID       uuid.UUID `json:"authorId" db:"author_id"`
	AuthorUsername string    `json:"authorUsername" db:"author_username"`
	Content        string    `json:"content" db:"content"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
