// internal/database/opinion_repository.go
package database

import (
	"context"
	"fmt"
	"time"

	"pollitago/internal/models"
	"pollitago/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OpinionDocument represents the MongoDB schema for an opinion.
type OpinionDocument struct {
	ID              string    `bson:"_id"`
	CreatorID       string    `bson:"creatorid"`
	CreatorUsername string    `bson:"creatorusername"`
	Text            string    `bson:"text"`
	CreatedAt       time.Time `bson:"createdat"`
	LikeCount       int       `bson:"likecount"`
	CommentCount    int       `bson:"commentcount"`
	TipCount        int       `bson:"tipcount"`
}

func opinionToDocument(opinion *models.Opinion) *OpinionDocument {
	return &OpinionDocument{
		ID:              opinion.ID.String(),
		CreatorID:       opinion.CreatorID.String(),
		CreatorUsername: opinion.CreatorUsername,
		Text:            opinion.Text,
		CreatedAt:       opinion.CreatedAt,
		LikeCount:       opinion.LikeCount,
		CommentCount:    opinion.CommentCount,
		TipCount:        opinion.TipCount,
	}
}

func documentToOpinion(doc *OpinionDocument) (*models.Opinion, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid opinion ID: %v", err)
	}
	creatorID, err := uuid.Parse(doc.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("invalid creator ID: %v", err)
	}
	return &models.Opinion{
		ID:              id,
		CreatorID:       creatorID,
		CreatorUsername: doc.CreatorUsername,
		Text:            doc.Text,
		CreatedAt:       doc.CreatedAt,
		LikeCount:       doc.LikeCount,
		CommentCount:    doc.CommentCount,
		TipCount:        doc.TipCount,
	}, nil
}

// SaveOpinion creates or updates an opinion.
func (m *MongoDB) SaveOpinion(ctx context.Context, opinion *models.Opinion) error {
	if opinion.CreatedAt.IsZero() {
		opinion.CreatedAt = time.Now()
	}
	doc := opinionToDocument(opinion)
	opts := options.Update().SetUpsert(true)
	_, err := m.Opinions.UpdateOne(ctx, bson.M{"_id": opinion.ID.String()}, bson.M{"$set": doc}, opts)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save opinion", err)
	}
	return nil
}

// GetOpinion retrieves an opinion by ID.
func (m *MongoDB) GetOpinion(ctx context.Context, id uuid.UUID) (*models.Opinion, error) {
	var doc OpinionDocument
	err := m.Opinions.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrNotFound, "opinion not found", err)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query opinion", err)
	}
	return documentToOpinion(&doc)
}

// GetRecentOpinions retrieves opinions newest-first. A non-positive limit
// returns every opinion.
func (m *MongoDB) GetRecentOpinions(ctx context.Context, limit int) ([]*models.Opinion, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdat", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := m.Opinions.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query recent opinions", err)
	}
	defer cursor.Close(ctx)

	var opinions []*models.Opinion
	for cursor.Next(ctx) {
		var doc OpinionDocument
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		opinion, err := documentToOpinion(&doc)
		if err != nil {
			continue
		}
		opinions = append(opinions, opinion)
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "cursor iteration failed", err)
	}
	return opinions, nil
}
