// internal/database/engagement_repository.go
package database

import (
	"context"
	"time"

	"pollitago/internal/models"
	"pollitago/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// LikeDocument records one user's like on one target. The compound _id
// makes a repeated like a duplicate-key no-op.
type LikeDocument struct {
	ID        string    `bson:"_id"` // kind:targetID:userID
	TargetID  string    `bson:"targetid"`
	Kind      string    `bson:"kind"`
	UserID    string    `bson:"userid"`
	CreatedAt time.Time `bson:"createdat"`
}

// TipDocument records one completed checkout tip, keyed by session so a
// replayed webhook does not double count.
type TipDocument struct {
	ID          string    `bson:"_id"` // checkout session ID
	TargetID    string    `bson:"targetid"`
	Kind        string    `bson:"kind"`
	TipperID    string    `bson:"tipperid"`
	AmountCents int64     `bson:"amountcents"`
	CreatedAt   time.Time `bson:"createdat"`
}

func (m *MongoDB) targetCollection(kind models.LikeTargetKind) *mongo.Collection {
	if kind == models.LikeOpinion {
		return m.Opinions
	}
	return m.Polls
}

// SetLike records or removes a like and keeps the target's like count in
// step. Returns whether anything changed.
func (m *MongoDB) SetLike(ctx context.Context, targetID uuid.UUID, kind models.LikeTargetKind, userID uuid.UUID, liked bool) (bool, error) {
	likeID := string(kind) + ":" + targetID.String() + ":" + userID.String()

	changed := false
	if liked {
		doc := &LikeDocument{
			ID:        likeID,
			TargetID:  targetID.String(),
			Kind:      string(kind),
			UserID:    userID.String(),
			CreatedAt: time.Now(),
		}
		_, err := m.Likes.InsertOne(ctx, doc)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return false, nil
			}
			return false, utils.NewAppError(utils.ErrDatabase, "failed to insert like", err)
		}
		changed = true
	} else {
		result, err := m.Likes.DeleteOne(ctx, bson.M{"_id": likeID})
		if err != nil {
			return false, utils.NewAppError(utils.ErrDatabase, "failed to delete like", err)
		}
		changed = result.DeletedCount > 0
	}

	if !changed {
		return false, nil
	}

	delta := 1
	if !liked {
		delta = -1
	}
	update := bson.M{"$inc": bson.M{"likecount": delta}}
	if _, err := m.targetCollection(kind).UpdateOne(ctx, bson.M{"_id": targetID.String()}, update); err != nil {
		return true, utils.NewAppError(utils.ErrDatabase, "failed to update like count", err)
	}
	return true, nil
}

// GetLikedTargets returns the set of target IDs the user has liked.
func (m *MongoDB) GetLikedTargets(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	cursor, err := m.Likes.Find(ctx, bson.M{"userid": userID.String()})
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query liked targets", err)
	}
	defer cursor.Close(ctx)

	liked := make(map[uuid.UUID]bool)
	for cursor.Next(ctx) {
		var doc LikeDocument
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		id, err := uuid.Parse(doc.TargetID)
		if err != nil {
			continue
		}
		liked[id] = true
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "cursor iteration failed", err)
	}
	return liked, nil
}

// RecordTip stores a completed checkout tip and bumps the target's tip count.
func (m *MongoDB) RecordTip(ctx context.Context, targetID uuid.UUID, kind models.LikeTargetKind, tipperID uuid.UUID, amountCents int64, sessionID string) error {
	doc := &TipDocument{
		ID:          sessionID,
		TargetID:    targetID.String(),
		Kind:        string(kind),
		TipperID:    tipperID.String(),
		AmountCents: amountCents,
		CreatedAt:   time.Now(),
	}
	if _, err := m.Tips.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewAppError(utils.ErrDuplicate, "tip already recorded for this session", err)
		}
		return utils.NewAppError(utils.ErrDatabase, "failed to record tip", err)
	}

	update := bson.M{"$inc": bson.M{"tipcount": 1}}
	if _, err := m.targetCollection(kind).UpdateOne(ctx, bson.M{"_id": targetID.String()}, update); err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update tip count", err)
	}
	return nil
}
