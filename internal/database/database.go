// internal/database/database.go
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Client   *mongo.Client
	Users    *mongo.Collection
	Polls    *mongo.Collection
	Opinions *mongo.Collection
	Comments *mongo.Collection
	Ballots  *mongo.Collection
	Likes    *mongo.Collection
	Tips     *mongo.Collection
}

func NewMongoDB(uri string, dbName string) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Ping the database to verify connection
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	log.Println("Successfully connected to MongoDB!")

	if dbName == "" {
		dbName = "pollitago"
	}
	db := client.Database(dbName)
	m := &MongoDB{
		Client:   client,
		Users:    db.Collection("users"),
		Polls:    db.Collection("polls"),
		Opinions: db.Collection("opinions"),
		Comments: db.Collection("comments"),
		Ballots:  db.Collection("ballots"),
		Likes:    db.Collection("likes"),
		Tips:     db.Collection("tips"),
	}

	// The ballot uniqueness index is what enforces one vote per viewer; the
	// compound _id covers it, but an explicit index keeps lookups cheap.
	ballotIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "pollid", Value: 1}, {Key: "voterid", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := m.Ballots.Indexes().CreateOne(ctx, ballotIndex); err != nil {
		log.Printf("Warning: failed to create ballot index: %v", err)
	}

	return m, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
