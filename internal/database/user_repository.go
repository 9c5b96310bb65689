// internal/database/user_repository.go
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

// UserDocument represents the MongoDB schema for a user.
type UserDocument struct {
	ID             string    `bson:"_id"`
	Username       string    `bson:"username"`
	Email          string    `bson:"email"`
	HashedPassword string    `bson:"hashedpassword"`
	AvatarURL      string    `bson:"avatarurl,omitempty"`
	Points         int       `bson:"points"`
	CreatedAt      time.Time `bson:"createdat"`
	UpdatedAt      time.Time `bson:"updatedat"`
	LastActive     time.Time `bson:"lastactive"`
	IsConnected    bool      `bson:"isconnected"`
}

func userToDocument(user *models.User) *UserDocument {
	return &UserDocument{
		ID:             user.ID.String(),
		Username:       user.Username,
		Email:          user.Email,
		HashedPassword: user.HashedPassword,
		AvatarURL:      user.AvatarURL,
		Points:         user.Points,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
		LastActive:     user.LastActive,
		IsConnected:    user.IsConnected,
	}
}

func documentToUser(doc *UserDocument) (*models.User, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %v", err)
	}
	return &models.User{
		ID:             id,
		Username:       doc.Username,
		Email:          doc.Email,
		HashedPassword: doc.HashedPassword,
		AvatarURL:      doc.AvatarURL,
		Points:         doc.Points,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
		LastActive:     doc.LastActive,
		IsConnected:    doc.IsConnected,
	}, nil
}

// GetUserByEmail fetches a user by email.
func (m *MongoDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var doc UserDocument
	err := m.Users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrNotFound, "user not found", err)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user by email", err)
	}
	return documentToUser(&doc)
}

// GetUser fetches a user by ID.
func (m *MongoDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var doc UserDocument
	err := m.Users.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrNotFound, "user not found", err)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query user by id", err)
	}
	return documentToUser(&doc)
}

// SaveUser creates or updates a user.
func (m *MongoDB) SaveUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.UpdatedAt = now
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.LastActive.IsZero() {
		user.LastActive = now
	}

	// Email and username must stay unique across users.
	filter := bson.M{
		"_id": bson.M{"$ne": user.ID.String()},
		"$or": []bson.M{{"email": user.Email}, {"username": user.Username}},
	}
	count, err := m.Users.CountDocuments(ctx, filter)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to check user uniqueness", err)
	}
	if count > 0 {
		return utils.NewAppError(utils.ErrDuplicate, "user already exists", nil)
	}

	doc := userToDocument(user)
	opts := options.Update().SetUpsert(true)
	_, err = m.Users.UpdateOne(ctx, bson.M{"_id": user.ID.String()}, bson.M{"$set": doc}, opts)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save user", err)
	}
	return nil
}

// UpdateUserActivity updates the user's last active time and connection status.
func (m *MongoDB) UpdateUserActivity(ctx context.Context, id uuid.UUID, active bool) error {
	update := bson.M{"$set": bson.M{
		"isconnected": active,
		"lastactive":  time.Now(),
		"updatedat":   time.Now(),
	}}
	result, err := m.Users.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update user activity", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewAppError(utils.ErrNotFound, "user not found for activity update", nil)
	}
	return nil
}

// UpdateUserPoints adjusts a user's point balance by delta.
func (m *MongoDB) UpdateUserPoints(ctx context.Context, id uuid.UUID, delta int) error {
	update := bson.M{
		"$inc": bson.M{"points": delta},
		"$set": bson.M{"updatedat": time.Now()},
	}
	result, err := m.Users.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to update user points", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewAppError(utils.ErrNotFound, "user not found for points update", nil)
	}
	return nil
}

// GetAllUsers fetches all users.
func (m *MongoDB) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	cursor, err := m.Users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdat", Value: -1}}))
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query all users", err)
	}
	defer cursor.Close(ctx)

	var users []*models.User
	for cursor.Next(ctx) {
		var doc UserDocument
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		user, err := documentToUser(&doc)
		if err != nil {
			continue
		}
		users = append(users, user)
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "cursor iteration failed", err)
	}
	return users, nil
}
