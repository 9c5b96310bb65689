// internal/database/poll_repository.go
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

// PollOptionDocument is an embedded option inside a PollDocument.
type PollOptionDocument struct {
	ID            string   `bson:"_id"`
	Text          string   `bson:"text"`
	Votes         int      `bson:"votes"`
	MediaURLs     []string `bson:"mediaurls,omitempty"`
	AffiliateLink string   `bson:"affiliatelink,omitempty"`
}

// PollDocument represents the MongoDB schema for a poll. Options are embedded
// so a vote can bump an option count and the total in a single update.
type PollDocument struct {
	ID              string               `bson:"_id"`
	CreatorID       string               `bson:"creatorid"`
	CreatorUsername string               `bson:"creatorusername"`
	Question        string               `bson:"question"`
	Options         []PollOptionDocument `bson:"options"`
	TotalVotes      int                  `bson:"totalvotes"`
	Deadline        time.Time            `bson:"deadline"`
	CreatedAt       time.Time            `bson:"createdat"`
	PledgeAmount    float64              `bson:"pledgeamount"`
	PledgeOutcome   string               `bson:"pledgeoutcome"`
	LikeCount       int                  `bson:"likecount"`
	CommentCount    int                  `bson:"commentcount"`
	TipCount        int                  `bson:"tipcount"`
}

// BallotDocument records one vote; the compound _id makes replays collide.
type BallotDocument struct {
	ID        string    `bson:"_id"` // pollID:voterID
	PollID    string    `bson:"pollid"`
	VoterID   string    `bson:"voterid"`
	OptionID  string    `bson:"optionid"`
	CreatedAt time.Time `bson:"createdat"`
}

func pollToDocument(poll *models.Poll) *PollDocument {
	doc := &PollDocument{
		ID:              poll.ID.String(),
		CreatorID:       poll.CreatorID.String(),
		CreatorUsername: poll.CreatorUsername,
		Question:        poll.Question,
		TotalVotes:      poll.TotalVotes,
		Deadline:        poll.Deadline,
		CreatedAt:       poll.CreatedAt,
		PledgeAmount:    poll.PledgeAmount,
		PledgeOutcome:   string(poll.PledgeOutcome),
		LikeCount:       poll.LikeCount,
		CommentCount:    poll.CommentCount,
		TipCount:        poll.TipCount,
	}
	if doc.PledgeOutcome == "" {
		doc.PledgeOutcome = string(models.PledgePending)
	}
	for _, opt := range poll.Options {
		doc.Options = append(doc.Options, PollOptionDocument{
			ID:            opt.ID.String(),
			Text:          opt.Text,
			Votes:         opt.Votes,
			MediaURLs:     opt.MediaURLs,
			AffiliateLink: opt.AffiliateLink,
		})
	}
	return doc
}

func documentToPoll(doc *PollDocument) (*models.Poll, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid poll ID: %v", err)
	}
	creatorID, err := uuid.Parse(doc.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("invalid creator ID: %v", err)
	}

	poll := &models.Poll{
		ID:              id,
		CreatorID:       creatorID,
		CreatorUsername: doc.CreatorUsername,
		Question:        doc.Question,
		TotalVotes:      doc.TotalVotes,
		Deadline:        doc.Deadline,
		CreatedAt:       doc.CreatedAt,
		PledgeAmount:    doc.PledgeAmount,
		PledgeOutcome:   models.PledgeOutcome(doc.PledgeOutcome),
		LikeCount:       doc.LikeCount,
		CommentCount:    doc.CommentCount,
		TipCount:        doc.TipCount,
	}
	for _, optDoc := range doc.Options {
		optID, err := uuid.Parse(optDoc.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid option ID: %v", err)
		}
		poll.Options = append(poll.Options, &models.PollOption{
			ID:            optID,
			Text:          optDoc.Text,
			Votes:         optDoc.Votes,
			MediaURLs:     optDoc.MediaURLs,
			AffiliateLink: optDoc.AffiliateLink,
		})
	}
	return poll, nil
}

// SavePoll creates or updates a poll in MongoDB.
func (m *MongoDB) SavePoll(ctx context.Context, poll *models.Poll) error {
	doc := pollToDocument(poll)

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": poll.ID.String()}
	update := bson.M{"$set": doc}

	_, err := m.Polls.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to save poll", err)
	}
	return nil
}

// GetPoll retrieves a poll by its ID.
func (m *MongoDB) GetPoll(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	var doc PollDocument

	err := m.Polls.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrNotFound, "poll not found", err)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query poll", err)
	}

	return documentToPoll(&doc)
}

// GetRecentPolls retrieves polls newest-first. A non-positive limit returns
// every poll; the startup load depends on that.
func (m *MongoDB) GetRecentPolls(ctx context.Context, limit int) ([]*models.Poll, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdat", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := m.Polls.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query recent polls", err)
	}
	defer cursor.Close(ctx)

	var polls []*models.Poll
	for cursor.Next(ctx) {
		var doc PollDocument
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		poll, err := documentToPoll(&doc)
		if err != nil {
			continue
		}
		polls = append(polls, poll)
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "cursor iteration failed", err)
	}
	return polls, nil
}

// GetPollsByCreator retrieves one creator's polls newest-first.
func (m *MongoDB) GetPollsByCreator(ctx context.Context, creatorID uuid.UUID) ([]*models.Poll, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdat", Value: -1}})
	cursor, err := m.Polls.Find(ctx, bson.M{"creatorid": creatorID.String()}, opts)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query polls by creator", err)
	}
	defer cursor.Close(ctx)

	var polls []*models.Poll
	for cursor.Next(ctx) {
		var doc PollDocument
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		poll, err := documentToPoll(&doc)
		if err != nil {
			continue
		}
		polls = append(polls, poll)
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "cursor iteration failed", err)
	}
	return polls, nil
}

// ApplyVote inserts a ballot and increments the matching option and total
// counts. The ballot's compound _id is the check-and-set: a second vote by
// the same viewer hits a duplicate key and nothing is incremented.
func (m *MongoDB) ApplyVote(ctx context.Context, pollID, optionID, voterID uuid.UUID) error {
	ballot := &BallotDocument{
		ID:        pollID.String() + ":" + voterID.String(),
		PollID:    pollID.String(),
		VoterID:   voterID.String(),
		OptionID:  optionID.String(),
		CreatedAt: time.Now(),
	}

	if _, err := m.Ballots.InsertOne(ctx, ballot); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewAppError(utils.ErrAlreadyVoted, "viewer has already voted on this poll", err)
		}
		return utils.NewAppError(utils.ErrDatabase, "failed to insert ballot", err)
	}

	filter := bson.M{"_id": pollID.String()}
	update := bson.M{"$inc": bson.M{
		"options.$[opt].votes": 1,
		"totalvotes":           1,
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"opt._id": optionID.String()}},
	})

	result, err := m.Polls.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		// Roll the ballot back so the viewer can retry.
		_, _ = m.Ballots.DeleteOne(ctx, bson.M{"_id": ballot.ID})
		return utils.NewAppError(utils.ErrDatabase, "failed to increment vote counts", err)
	}
	if result.ModifiedCount == 0 {
		_, _ = m.Ballots.DeleteOne(ctx, bson.M{"_id": ballot.ID})
		return utils.NewAppError(utils.ErrNotFound, "poll or option not found", nil)
	}
	return nil
}

// GetPollBallots retrieves every ballot cast on a poll.
func (m *MongoDB) GetPollBallots(ctx context.Context, pollID uuid.UUID) ([]*models.Ballot, error) {
	cursor, err := m.Ballots.Find(ctx, bson.M{"pollid": pollID.String()})
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to query ballots", err)
	}
	defer cursor.Close(ctx)

	var ballots []*models.Ballot
	for cursor.Next(ctx) {
		var doc BallotDocument
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		pID, err1 := uuid.Parse(doc.PollID)
		vID, err2 := uuid.Parse(doc.VoterID)
		oID, err3 := uuid.Parse(doc.OptionID)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		ballots = append(ballots, &models.Ballot{
			PollID:    pID,
			VoterID:   vID,
			OptionID:  oID,
			CreatedAt: doc.CreatedAt,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "cursor iteration failed", err)
	}
	return ballots, nil
}

// SetPledgeOutcome records the terminal pledge decision. The filter repeats
// the precondition so a raced second decision cannot overwrite the first.
func (m *MongoDB) SetPledgeOutcome(ctx context.Context, pollID uuid.UUID, outcome models.PledgeOutcome) error {
	filter := bson.M{
		"_id":           pollID.String(),
		"pledgeoutcome": string(models.PledgePending),
		"pledgeamount":  bson.M{"$gt": 0},
		"deadline":      bson.M{"$lte": time.Now()},
	}
	update := bson.M{"$set": bson.M{"pledgeoutcome": string(outcome)}}

	result, err := m.Polls.UpdateOne(ctx, filter, update)
	if err != nil {
		return utils.NewAppError(utils.ErrDatabase, "failed to set pledge outcome", err)
	}
	if result.ModifiedCount == 0 {
		return utils.NewAppError(utils.ErrPledgeDecided, "pledge outcome not updatable (already decided, no pledge, or poll still open)", nil)
	}
	return nil
}
