// internal/database/comment_repository.go
package database

import (
	"context"
	"fmt"
	"time"

	"pollitago/internal/models"
	"pollitago/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CommentDocument represents the MongoDB schema for a comment.
type CommentDocument struct {
	ID             string    `bson:"_id"`
	PostID         string    `bson:"postid"`
	AuthorID       string    `bson:"authorid"`
	AuthorUsername string    `bson:"authorusername"`
	Content        string    `bson:"content"`
	CreatedAt      time.Time `bson:"createdat"`
}

func commentToDocument(comment *models.Comment) *CommentDocument {
	return &CommentDocument{
		ID:             comment.ID.String(),
		PostID:         comment.PostID.String(),
		AuthorID:       comment.AuthorID.String(),
		AuthorUsername: comment.AuthorUsername,
		Content:        comment.Content,
		CreatedAt:      comment.CreatedAt,
	}
}

func documentToComment(doc *CommentDocument) (*models.Comment, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid comment ID: %v", err)
	}
	postID, err := uuid.Parse(doc.PostID)
	if err != nil {
		return nil, fmt.Errorf("invalid post ID: %v", err)
	}
	authorID, err := uuid.Parse(doc.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author ID: %v", err)
	}
	return &models.Comment{
		ID:             id,
		PostID:         postID,
		AuthorID:       authorID,
		AuthorUsername: doc.AuthorUsername,
		Content:        doc.Content,
		CreatedAt:      doc.CreatedAt,
	}, nil
}

// SaveComment inserts a comment and bumps the parent post's comment count.
// Comments are append-only, so this is insert-only.
func (m *MongoDB) SaveComment(ctx context.Context, comment *models.Comment) error {
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	if _, err := m.Comments.InsertOne(ctx, commentToDocument(comment)); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save comment", err)
	}

	// The parent may be a poll or an opinion; whichever matches wins.
	filter := bson.M{"_id": comment.PostID.String()}
	update := bson.M{"$inc": bson.M{"commentcount": 1}}
	result, err := m.Polls.UpdateOne(ctx, filter, update)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update poll comment count", err)
	}
	if result.MatchedCount == 0 {
		if _, err := m.Opinions.UpdateOne(ctx, filter, update); err != nil {
			return utils.NewAppError(utils.ErrDatabase, "failed to update opinion comment count", err)
		}
	}
	return nil
}

// GetPostComments retrieves a post's comments newest-first.
func (m *MongoDB) GetPostComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdat", Value: -1}})
	cursor, err := m.Comments.Find(ctx, bson.M{"postid": postID.String()}, opts)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query post comments", err)
	}
	defer cursor.Close(ctx)

	var comments []*models.Comment
	for cursor.Next(ctx) {
		var doc CommentDocument
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		comment, err := documentToComment(&doc)
		if err != nil {
			continue
		}
		comments = append(comments, comment)
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "cursor iteration failed", err)
	}
	return comments, nil
}
