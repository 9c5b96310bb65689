package actors

import (
	stdctx "context"
	"log"
	"sort"
	"time"

	"pollitago/internal/database"
	"pollitago/internal/models"
	"pollitago/internal/payout"
	"pollitago/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for Poll operations
type (
	PollOptionInput struct {
		Text          string   `json:"text"`
		MediaURLs     []string `json:"mediaUrls,omitempty"`
		AffiliateLink string   `json:"affiliateLink,omitempty"`
	}

	CreatePollMsg struct {
		Question        string
		CreatorID       uuid.UUID
		CreatorUsername string
		Options         []PollOptionInput
		Deadline        time.Time
		PledgeAmount    float64
	}

	GetPollMsg struct {
		PollID   uuid.UUID
		ViewerID uuid.UUID // uuid.Nil for anonymous viewers
	}

	GetPollFeedMsg struct {
		ViewerID uuid.UUID
		Limit    int
	}

	GetCreatorPollsMsg struct {
		CreatorID uuid.UUID
		ViewerID  uuid.UUID
	}

	CastVoteMsg struct {
		PollID   uuid.UUID
		OptionID uuid.UUID
		VoterID  uuid.UUID
	}

	LikePollMsg struct {
		PollID uuid.UUID
		UserID uuid.UUID
		Liked  bool
	}

	DecidePledgeMsg struct {
		PollID  uuid.UUID
		ActorID uuid.UUID
		Outcome models.PledgeOutcome
	}

	RecordPollTipMsg struct {
		PollID      uuid.UUID
		TipperID    uuid.UUID
		AmountCents int64
		SessionID   string
	}

	GetCountsMsg struct{}

	loadPollsFromDBMsg struct{}
)

// VoteResult is what a successful vote returns: the viewer's refreshed
// projection plus the payout advisory for the option they picked.
type VoteResult struct {
	Poll     *models.PollView `json:"poll"`
	Estimate payout.Estimate  `json:"estimate"`
}

// PollActor owns poll state: the polls themselves, the per-viewer vote
// ledger, and like sets. The database adapter, when present, is the durable
// authority for the one-vote-per-viewer rule.
type PollActor struct {
	pollsByID map[uuid.UUID]*models.Poll
	// ballots maps pollID -> voterID -> chosen optionID. A voter present in
	// the inner map has voted; the entry never changes afterwards.
	ballots map[uuid.UUID]map[uuid.UUID]uuid.UUID
	// likedBy maps userID -> set of liked poll IDs (cache over the DB).
	likedBy map[uuid.UUID]map[uuid.UUID]bool
	// tipSessions tracks recorded checkout session IDs; a replayed webhook
	// delivery must not count twice.
	tipSessions map[string]bool
	metrics     *utils.MetricsCollector
	enginePID   *actor.PID
	db          database.DBAdapter
}

// NewPollActor creates a new PollActor instance. db may be nil, in which
// case state is held in memory only (used by tests).
func NewPollActor(metrics *utils.MetricsCollector, enginePID *actor.PID, db database.DBAdapter) actor.Actor {
	return &PollActor{
		pollsByID:   make(map[uuid.UUID]*models.Poll),
		ballots:     make(map[uuid.UUID]map[uuid.UUID]uuid.UUID),
		likedBy:     make(map[uuid.UUID]map[uuid.UUID]bool),
		tipSessions: make(map[string]bool),
		metrics:     metrics,
		enginePID:   enginePID,
		db:          db,
	}
}

// Receive handles incoming messages
func (a *PollActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("PollActor started")
		if a.db != nil {
			context.Send(context.Self(), &loadPollsFromDBMsg{})
		}

	case *actor.Stopping:
		log.Printf("PollActor stopping")

	case *actor.Stopped:
		log.Printf("PollActor stopped")

	case *actor.Restarting:
		log.Printf("PollActor restarting")

	case *loadPollsFromDBMsg:
		a.handleLoadPolls()

	case *CreatePollMsg:
		a.handleCreatePoll(context, msg)

	case *GetPollMsg:
		a.handleGetPoll(context, msg)

	case *GetPollFeedMsg:
		a.handleGetFeed(context, msg)

	case *GetCreatorPollsMsg:
		a.handleGetCreatorPolls(context, msg)

	case *CastVoteMsg:
		log.Printf("PollActor: Processing vote on poll %s from user %s", msg.PollID, msg.VoterID)
		a.handleCastVote(context, msg)

	case *LikePollMsg:
		a.handleLike(context, msg)

	case *DecidePledgeMsg:
		a.handleDecidePledge(context, msg)

	case *RecordPollTipMsg:
		a.handleRecordTip(context, msg)

	case *IncrementCommentCountMsg:
		if poll, exists := a.pollsByID[msg.PostID]; exists {
			poll.CommentCount++
		}

	case *GetCountsMsg:
		context.Respond(len(a.pollsByID))

	default:
		log.Printf("PollActor: Unknown message type: %T", msg)
	}
}

func (a *PollActor) handleLoadPolls() {
	ctx := stdctx.Background()
	polls, err := a.db.GetRecentPolls(ctx, 0)
	if err != nil {
		log.Printf("PollActor: CRITICAL - Failed to load polls: %v", err)
		return
	}
	for _, poll := range polls {
		a.pollsByID[poll.ID] = poll
		a.ballots[poll.ID] = make(map[uuid.UUID]uuid.UUID)

		ballots, err := a.db.GetPollBallots(ctx, poll.ID)
		if err != nil {
			log.Printf("PollActor: Failed to load ballots for poll %s: %v", poll.ID, err)
			continue
		}
		for _, b := range ballots {
			a.ballots[poll.ID][b.VoterID] = b.OptionID
		}
	}
	log.Printf("PollActor: Loaded %d polls from database", len(polls))
}

func (a *PollActor) handleCreatePoll(context actor.Context, msg *CreatePollMsg) {
	startTime := time.Now()

	if msg.Question == "" {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "question is required", nil))
		return
	}
	if len(msg.Options) < 2 {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "a poll needs at least two options", nil))
		return
	}
	if msg.PledgeAmount < 0 {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "pledge amount cannot be negative", nil))
		return
	}
	for _, opt := range msg.Options {
		if opt.Text == "" || len(opt.Text) > models.MaxOptionTextLen {
			context.Respond(utils.NewAppError(utils.ErrInvalidInput, "option text must be 1-120 characters", nil))
			return
		}
	}

	newPoll := &models.Poll{
		ID:              uuid.New(),
		CreatorID:       msg.CreatorID,
		CreatorUsername: msg.CreatorUsername,
		Question:        msg.Question,
		Deadline:        msg.Deadline,
		CreatedAt:       time.Now(),
		PledgeAmount:    msg.PledgeAmount,
		PledgeOutcome:   models.PledgePending,
	}
	for _, opt := range msg.Options {
		newPoll.Options = append(newPoll.Options, &models.PollOption{
			ID:            uuid.New(),
			Text:          opt.Text,
			MediaURLs:     opt.MediaURLs,
			AffiliateLink: opt.AffiliateLink,
		})
	}

	if a.db != nil {
		if err := a.db.SavePoll(stdctx.Background(), newPoll); err != nil {
			log.Printf("PollActor: Failed to save poll: %v", err)
			context.Respond(err)
			return
		}
	}

	log.Printf("PollActor: Created poll %s by user %s", newPoll.ID, newPoll.CreatorID)
	a.pollsByID[newPoll.ID] = newPoll
	a.ballots[newPoll.ID] = make(map[uuid.UUID]uuid.UUID)

	a.metrics.AddOperationLatency("create_poll", time.Since(startTime))
	context.Respond(a.view(newPoll, msg.CreatorID))
}

func (a *PollActor) handleGetPoll(context actor.Context, msg *GetPollMsg) {
	poll, exists := a.pollsByID[msg.PollID]
	if !exists {
		context.Respond(utils.NewPollNotFoundError(msg.PollID.String()))
		return
	}
	context.Respond(a.view(poll, msg.ViewerID))
}

func (a *PollActor) handleGetFeed(context actor.Context, msg *GetPollFeedMsg) {
	startTime := time.Now()

	polls := make([]*models.Poll, 0, len(a.pollsByID))
	for _, poll := range a.pollsByID {
		polls = append(polls, poll)
	}
	sort.Slice(polls, func(i, j int) bool {
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
	if msg.Limit > 0 && len(polls) > msg.Limit {
		polls = polls[:msg.Limit]
	}

	views := make([]*models.PollView, 0, len(polls))
	for _, poll := range polls {
		views = append(views, a.view(poll, msg.ViewerID))
	}

	a.metrics.AddOperationLatency("get_poll_feed", time.Since(startTime))
	context.Respond(views)
}

func (a *PollActor) handleGetCreatorPolls(context actor.Context, msg *GetCreatorPollsMsg) {
	polls := make([]*models.Poll, 0)
	for _, poll := range a.pollsByID {
		if poll.CreatorID == msg.CreatorID {
			polls = append(polls, poll)
		}
	}
	sort.Slice(polls, func(i, j int) bool {
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})

	views := make([]*models.PollView, 0, len(polls))
	for _, poll := range polls {
		views = append(views, a.view(poll, msg.ViewerID))
	}
	context.Respond(views)
}

func (a *PollActor) handleCastVote(context actor.Context, msg *CastVoteMsg) {
	startTime := time.Now()

	poll, exists := a.pollsByID[msg.PollID]
	if !exists {
		context.Respond(utils.NewPollNotFoundError(msg.PollID.String()))
		return
	}

	if msg.VoterID == uuid.Nil {
		context.Respond(utils.NewUnauthorizedError("voting requires a signed-in viewer"))
		return
	}

	if poll.Closed(time.Now()) {
		context.Respond(utils.NewVotingClosedError(poll.ID.String()))
		return
	}

	option := poll.Option(msg.OptionID)
	if option == nil {
		context.Respond(utils.NewAppError(utils.ErrNotFound, "option not found on poll", nil))
		return
	}

	if _, voted := a.ballots[poll.ID][msg.VoterID]; voted {
		context.Respond(utils.NewAppError(utils.ErrAlreadyVoted, "viewer has already voted on this poll", nil))
		return
	}

	// The database write is the atomic check-and-set; only a confirmed
	// insert mutates the in-memory counts.
	if a.db != nil {
		if err := a.db.ApplyVote(stdctx.Background(), poll.ID, option.ID, msg.VoterID); err != nil {
			log.Printf("PollActor: Vote rejected for poll %s user %s: %v", poll.ID, msg.VoterID, err)
			context.Respond(err)
			return
		}
	}

	if _, ok := a.ballots[poll.ID]; !ok {
		a.ballots[poll.ID] = make(map[uuid.UUID]uuid.UUID)
	}
	a.ballots[poll.ID][msg.VoterID] = option.ID
	option.Votes++
	poll.TotalVotes++

	estimate := payout.EstimatePayout(poll.PledgeAmount, option.Votes)

	a.metrics.AddOperationLatency("cast_vote", time.Since(startTime))
	context.Respond(&VoteResult{
		Poll:     a.view(poll, msg.VoterID),
		Estimate: estimate,
	})
}

func (a *PollActor) handleLike(context actor.Context, msg *LikePollMsg) {
	poll, exists := a.pollsByID[msg.PollID]
	if !exists {
		context.Respond(utils.NewPollNotFoundError(msg.PollID.String()))
		return
	}
	if msg.UserID == uuid.Nil {
		context.Respond(utils.NewUnauthorizedError("liking requires a signed-in viewer"))
		return
	}

	changed := true
	if a.db != nil {
		var err error
		changed, err = a.db.SetLike(stdctx.Background(), poll.ID, models.LikePoll, msg.UserID, msg.Liked)
		if err != nil {
			context.Respond(err)
			return
		}
	} else {
		already := a.likedBy[msg.UserID][poll.ID]
		changed = already != msg.Liked
	}

	if changed {
		if _, ok := a.likedBy[msg.UserID]; !ok {
			a.likedBy[msg.UserID] = make(map[uuid.UUID]bool)
		}
		if msg.Liked {
			a.likedBy[msg.UserID][poll.ID] = true
			poll.LikeCount++
			a.notifyPoints(context, poll.CreatorID, 1)
		} else {
			delete(a.likedBy[msg.UserID], poll.ID)
			poll.LikeCount--
			a.notifyPoints(context, poll.CreatorID, -1)
		}
	}

	context.Respond(a.view(poll, msg.UserID))
}

func (a *PollActor) handleDecidePledge(context actor.Context, msg *DecidePledgeMsg) {
	poll, exists := a.pollsByID[msg.PollID]
	if !exists {
		context.Respond(utils.NewPollNotFoundError(msg.PollID.String()))
		return
	}

	if msg.Outcome != models.PledgeAccepted && msg.Outcome != models.PledgeTippedCrowd {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "outcome must be accepted or tipped_crowd", nil))
		return
	}
	if msg.ActorID != poll.CreatorID {
		context.Respond(utils.NewAppError(utils.ErrForbidden, "only the poll creator can decide the pledge outcome", nil))
		return
	}
	if poll.PledgeAmount <= 0 {
		context.Respond(utils.NewAppError(utils.ErrNoPledge, "poll carries no pledge", nil))
		return
	}
	if !poll.Closed(time.Now()) {
		context.Respond(utils.NewAppError(utils.ErrPollStillOpen, "pledge outcome can only be decided after the deadline", nil))
		return
	}
	if poll.PledgeOutcome != "" && poll.PledgeOutcome != models.PledgePending {
		context.Respond(utils.NewAppError(utils.ErrPledgeDecided, "pledge outcome already decided", nil))
		return
	}

	if a.db != nil {
		if err := a.db.SetPledgeOutcome(stdctx.Background(), poll.ID, msg.Outcome); err != nil {
			context.Respond(err)
			return
		}
	}

	poll.PledgeOutcome = msg.Outcome
	log.Printf("PollActor: Pledge outcome for poll %s decided: %s", poll.ID, msg.Outcome)
	context.Respond(a.view(poll, msg.ActorID))
}

func (a *PollActor) handleRecordTip(context actor.Context, msg *RecordPollTipMsg) {
	poll, exists := a.pollsByID[msg.PollID]
	if !exists {
		context.Respond(utils.NewPollNotFoundError(msg.PollID.String()))
		return
	}

	if msg.SessionID != "" && a.tipSessions[msg.SessionID] {
		context.Respond(utils.NewAppError(utils.ErrDuplicate, "tip already recorded for this session", nil))
		return
	}

	if a.db != nil {
		if err := a.db.RecordTip(stdctx.Background(), poll.ID, models.LikePoll, msg.TipperID, msg.AmountCents, msg.SessionID); err != nil {
			context.Respond(err)
			return
		}
	}

	if msg.SessionID != "" {
		a.tipSessions[msg.SessionID] = true
	}
	poll.TipCount++
	// Creators earn one point per whole major unit tipped.
	a.notifyPoints(context, poll.CreatorID, int(msg.AmountCents/100))

	context.Respond(&models.StatusResponse{Success: true, Message: "tip recorded"})
}

func (a *PollActor) notifyPoints(context actor.Context, userID uuid.UUID, delta int) {
	if a.enginePID == nil || delta == 0 {
		return
	}
	context.Send(a.enginePID, &UpdatePointsMsg{UserID: userID, Delta: delta})
}

// view builds the session-relative projection for one viewer. Percentages
// are revealed only to viewers who voted, or once the poll has closed.
func (a *PollActor) view(poll *models.Poll, viewerID uuid.UUID) *models.PollView {
	v := &models.PollView{Poll: poll}

	if viewerID != uuid.Nil {
		if optionID, ok := a.ballots[poll.ID][viewerID]; ok {
			v.IsVoted = true
			opt := optionID
			v.VotedOptionID = &opt
		}
		v.IsLiked = a.isLikedBy(poll.ID, viewerID)
	}

	if v.IsVoted || poll.Closed(time.Now()) {
		v.Results = make([]*models.OptionResult, 0, len(poll.Options))
		for _, opt := range poll.Options {
			v.Results = append(v.Results, &models.OptionResult{
				OptionID:   opt.ID,
				Votes:      opt.Votes,
				Percentage: payout.Percentage(opt.Votes, poll.TotalVotes),
			})
		}
	} else {
		v.Poll = redactCounts(poll)
	}

	return v
}

// redactCounts copies a poll with its vote tallies zeroed, so an unrevealed
// projection carries no counts for the client to reconstruct results from.
func redactCounts(poll *models.Poll) *models.Poll {
	clone := *poll
	clone.TotalVotes = 0
	clone.Options = make([]*models.PollOption, len(poll.Options))
	for i, opt := range poll.Options {
		o := *opt
		o.Votes = 0
		clone.Options[i] = &o
	}
	return &clone
}

func (a *PollActor) isLikedBy(targetID, userID uuid.UUID) bool {
	liked, cached := a.likedBy[userID]
	if !cached && a.db != nil {
		var err error
		liked, err = a.db.GetLikedTargets(stdctx.Background(), userID)
		if err != nil {
			log.Printf("PollActor: Failed to load likes for user %s: %v", userID, err)
			return false
		}
		a.likedBy[userID] = liked
	}
	return liked[targetID]
}
