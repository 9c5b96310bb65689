package actors

import (
	"testing"
	"time"

	"pollitago/internal/models"
	"pollitago/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func spawnPollActor(t *testing.T) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPollActor(utils.NewMetricsCollector(), nil, nil)
	}))
	return system, pid
}

func ask(t *testing.T, system *actor.ActorSystem, pid *actor.PID, msg interface{}) interface{} {
	t.Helper()
	result, err := system.Root.RequestFuture(pid, msg, 5*time.Second).Result()
	assert.NoError(t, err)
	return result
}

func createPoll(t *testing.T, system *actor.ActorSystem, pid *actor.PID, creator uuid.UUID, deadline time.Time, pledge float64) *models.PollView {
	t.Helper()
	result := ask(t, system, pid, &CreatePollMsg{
		Question:     "Which laptop should I buy?",
		CreatorID:    creator,
		Deadline:     deadline,
		PledgeAmount: pledge,
		Options: []PollOptionInput{
			{Text: "ThinkPad X1"},
			{Text: "MacBook Air"},
		},
	})
	view, ok := result.(*models.PollView)
	assert.True(t, ok, "expected *models.PollView, got %T", result)
	return view
}

func TestCreatePollValidation(t *testing.T) {
	system, pid := spawnPollActor(t)

	result := ask(t, system, pid, &CreatePollMsg{
		Question:  "",
		CreatorID: uuid.New(),
		Options:   []PollOptionInput{{Text: "a"}, {Text: "b"}},
	})
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)

	result = ask(t, system, pid, &CreatePollMsg{
		Question:  "Only one option?",
		CreatorID: uuid.New(),
		Options:   []PollOptionInput{{Text: "a"}},
	})
	appErr, ok = result.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)
}

func TestResultsHiddenUntilViewerVotes(t *testing.T) {
	system, pid := spawnPollActor(t)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(24*time.Hour), 0)

	viewer := uuid.New()
	result := ask(t, system, pid, &GetPollMsg{PollID: poll.ID, ViewerID: viewer})
	view := result.(*models.PollView)
	assert.False(t, view.IsVoted)
	assert.Nil(t, view.Results, "results must stay hidden before the viewer votes")

	// Anonymous viewers never see results on an open poll either.
	result = ask(t, system, pid, &GetPollMsg{PollID: poll.ID, ViewerID: uuid.Nil})
	view = result.(*models.PollView)
	assert.Nil(t, view.Results)
}

func TestVoteRevealsResults(t *testing.T) {
	system, pid := spawnPollActor(t)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(24*time.Hour), 0)
	optionID := poll.Options[0].ID

	voter := uuid.New()
	result := ask(t, system, pid, &CastVoteMsg{PollID: poll.ID, OptionID: optionID, VoterID: voter})
	voteResult, ok := result.(*VoteResult)
	assert.True(t, ok, "expected *VoteResult, got %T", result)

	view := voteResult.Poll
	assert.True(t, view.IsVoted)
	assert.NotNil(t, view.VotedOptionID)
	assert.Equal(t, optionID, *view.VotedOptionID)
	assert.Equal(t, 1, view.TotalVotes)
	assert.NotNil(t, view.Results)
	assert.Equal(t, 100, view.Results[0].Percentage)
	assert.Equal(t, 0, view.Results[1].Percentage)
}

func TestDuplicateVoteRejected(t *testing.T) {
	system, pid := spawnPollActor(t)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(24*time.Hour), 0)

	voter := uuid.New()
	ask(t, system, pid, &CastVoteMsg{PollID: poll.ID, OptionID: poll.Options[0].ID, VoterID: voter})

	// Second vote changes nothing, even when it targets a different option.
	result := ask(t, system, pid, &CastVoteMsg{PollID: poll.ID, OptionID: poll.Options[1].ID, VoterID: voter})
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, utils.ErrAlreadyVoted, appErr.Code)

	check := ask(t, system, pid, &GetPollMsg{PollID: poll.ID, ViewerID: voter})
	view := check.(*models.PollView)
	assert.Equal(t, 1, view.TotalVotes)
	assert.Equal(t, poll.Options[0].ID, *view.VotedOptionID)
}

func TestVoteAfterDeadlineRejected(t *testing.T) {
	system, pid := spawnPollActor(t)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(-1*time.Hour), 0)

	result := ask(t, system, pid, &CastVoteMsg{PollID: poll.ID, OptionID: poll.Options[0].ID, VoterID: uuid.New()})
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, utils.ErrVotingClosed, appErr.Code)
}

func TestClosedPollRevealsResultsToNonVoters(t *testing.T) {
	system, pid := spawnPollActor(t)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(-1*time.Hour), 0)

	result := ask(t, system, pid, &GetPollMsg{PollID: poll.ID, ViewerID: uuid.New()})
	view := result.(*models.PollView)
	assert.False(t, view.IsVoted)
	assert.NotNil(t, view.Results, "results open up once the deadline passes")
}

func TestVoteTotalsStayConsistent(t *testing.T) {
	system, pid := spawnPollActor(t)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(24*time.Hour), 0)

	voters := make([]uuid.UUID, 7)
	for i := range voters {
		voters[i] = uuid.New()
		option := poll.Options[i%2]
		ask(t, system, pid, &CastVoteMsg{PollID: poll.ID, OptionID: option.ID, VoterID: voters[i]})
	}

	result := ask(t, system, pid, &GetPollMsg{PollID: poll.ID, ViewerID: voters[0]})
	view := result.(*models.PollView)
	sum := 0
	for _, opt := range view.Options {
		sum += opt.Votes
	}
	assert.Equal(t, view.TotalVotes, sum)
	assert.Equal(t, 7, view.TotalVotes)
}

func TestVoteCarriesPayoutEstimate(t *testing.T) {
	system, pid := spawnPollActor(t)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(24*time.Hour), 10.0)

	result := ask(t, system, pid, &CastVoteMsg{PollID: poll.ID, OptionID: poll.Options[0].ID, VoterID: uuid.New()})
	voteResult := result.(*VoteResult)

	// $10 pledge, one vote on the option: half the pledge to one voter.
	assert.InDelta(t, 5.0, voteResult.Estimate.AmountForVoters, 1e-9)
	assert.InDelta(t, 5.0, voteResult.Estimate.PerVoterPayout, 1e-9)
	assert.False(t, voteResult.Estimate.LowPayout)
}

func TestDecidePledgeOnlyByCreator(t *testing.T) {
	system, pid := spawnPollActor(t)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(-1*time.Hour), 10.0)

	result := ask(t, system, pid, &DecidePledgeMsg{
		PollID:  poll.ID,
		ActorID: uuid.New(),
		Outcome: models.PledgeAccepted,
	})
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, utils.ErrForbidden, appErr.Code)
}

func TestDecidePledgeBeforeDeadlineRejected(t *testing.T) {
	system, pid := spawnPollActor(t)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(24*time.Hour), 10.0)

	result := ask(t, system, pid, &DecidePledgeMsg{
		PollID:  poll.ID,
		ActorID: creator,
		Outcome: models.PledgeAccepted,
	})
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, utils.ErrPollStillOpen, appErr.Code)
}

func TestDecidePledgeWithoutPledgeRejected(t *testing.T) {
	system, pid := spawnPollActor(t)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(-1*time.Hour), 0)

	result := ask(t, system, pid, &DecidePledgeMsg{
		PollID:  poll.ID,
		ActorID: creator,
		Outcome: models.PledgeTippedCrowd,
	})
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, utils.ErrNoPledge, appErr.Code)
}

func TestDecidePledgeIsTerminal(t *testing.T) {
	system, pid := spawnPollActor(t)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(-1*time.Hour), 10.0)

	result := ask(t, system, pid, &DecidePledgeMsg{
		PollID:  poll.ID,
		ActorID: creator,
		Outcome: models.PledgeAccepted,
	})
	view, ok := result.(*models.PollView)
	assert.True(t, ok, "expected *models.PollView, got %T", result)
	assert.Equal(t, models.PledgeAccepted, view.PledgeOutcome)

	// A second decision, even with the same outcome, is rejected.
	result = ask(t, system, pid, &DecidePledgeMsg{
		PollID:  poll.ID,
		ActorID: creator,
		Outcome: models.PledgeTippedCrowd,
	})
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, utils.ErrPledgeDecided, appErr.Code)

	check := ask(t, system, pid, &GetPollMsg{PollID: poll.ID, ViewerID: creator})
	assert.Equal(t, models.PledgeAccepted, check.(*models.PollView).PledgeOutcome)
}

func TestLikeToggle(t *testing.T) {
	system, pid := spawnPollActor(t)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(24*time.Hour), 0)

	user := uuid.New()
	result := ask(t, system, pid, &LikePollMsg{PollID: poll.ID, UserID: user, Liked: true})
	view := result.(*models.PollView)
	assert.True(t, view.IsLiked)
	assert.Equal(t, 1, view.LikeCount)

	// Liking twice is a no-op.
	result = ask(t, system, pid, &LikePollMsg{PollID: poll.ID, UserID: user, Liked: true})
	view = result.(*models.PollView)
	assert.Equal(t, 1, view.LikeCount)

	result = ask(t, system, pid, &LikePollMsg{PollID: poll.ID, UserID: user, Liked: false})
	view = result.(*models.PollView)
	assert.False(t, view.IsLiked)
	assert.Equal(t, 0, view.LikeCount)
}

func TestVoteOnUnknownPoll(t *testing.T) {
	system, pid := spawnPollActor(t)

	result := ask(t, system, pid, &CastVoteMsg{PollID: uuid.New(), OptionID: uuid.New(), VoterID: uuid.New()})
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, utils.ErrPollNotFound, appErr.Code)
}

func TestCreatorPollListing(t *testing.T) {
	system, pid := spawnPollActor(t)
	alice := uuid.New()
	bob := uuid.New()

	first := createPoll(t, system, pid, alice, time.Now().Add(24*time.Hour), 0)
	second := createPoll(t, system, pid, alice, time.Now().Add(48*time.Hour), 0)
	createPoll(t, system, pid, bob, time.Now().Add(24*time.Hour), 0)

	result := ask(t, system, pid, &GetCreatorPollsMsg{CreatorID: alice, ViewerID: uuid.Nil})
	views, ok := result.([]*models.PollView)
	assert.True(t, ok, "expected []*models.PollView, got %T", result)
	assert.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].ID, "newest poll listed first")
	assert.Equal(t, first.ID, views[1].ID)
}

func spawnPollActorWith(t *testing.T, db *memoryDB) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPollActor(utils.NewMetricsCollector(), nil, db)
	}))
	return system, pid
}

func TestTipReplayRejected(t *testing.T) {
	system, pid := spawnPollActor(t)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(24*time.Hour), 0)

	tip := &RecordPollTipMsg{
		PollID:      poll.ID,
		TipperID:    uuid.New(),
		AmountCents: 500,
		SessionID:   "cs_delivered_once",
	}

	result := ask(t, system, pid, tip)
	status, ok := result.(*models.StatusResponse)
	assert.True(t, ok, "expected *models.StatusResponse, got %T", result)
	assert.True(t, status.Success)

	// A redelivered completion event must not count again.
	result = ask(t, system, pid, tip)
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok, "expected *utils.AppError, got %T", result)
	assert.Equal(t, utils.ErrDuplicate, appErr.Code)

	check := ask(t, system, pid, &GetPollMsg{PollID: poll.ID, ViewerID: creator})
	assert.Equal(t, 1, check.(*models.PollView).TipCount)
}

func TestTipReplayRejectedAfterRestart(t *testing.T) {
	store := newMemoryDB()
	system, pid := spawnPollActorWith(t, store)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(24*time.Hour), 0)

	tip := &RecordPollTipMsg{
		PollID:      poll.ID,
		TipperID:    uuid.New(),
		AmountCents: 300,
		SessionID:   "cs_survives_restart",
	}
	result := ask(t, system, pid, tip)
	_, ok := result.(*models.StatusResponse)
	assert.True(t, ok, "expected *models.StatusResponse, got %T", result)

	// A fresh actor rebuilt from the store has no session cache; the store
	// itself must reject the replay.
	system2, pid2 := spawnPollActorWith(t, store)
	assert.Eventually(t, func() bool {
		res, err := system2.Root.RequestFuture(pid2, &GetCountsMsg{}, time.Second).Result()
		return err == nil && res == 1
	}, 2*time.Second, 10*time.Millisecond, "restarted actor should load the poll")

	result = ask(t, system2, pid2, tip)
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok, "expected *utils.AppError, got %T", result)
	assert.Equal(t, utils.ErrDuplicate, appErr.Code)
}

func TestRawCountsHiddenUntilReveal(t *testing.T) {
	system, pid := spawnPollActor(t)
	creator := uuid.New()
	poll := createPoll(t, system, pid, creator, time.Now().Add(24*time.Hour), 0)

	ask(t, system, pid, &CastVoteMsg{PollID: poll.ID, OptionID: poll.Options[0].ID, VoterID: uuid.New()})

	// A viewer who has not voted sees zeroed tallies, not just nil Results.
	viewer := uuid.New()
	result := ask(t, system, pid, &GetPollMsg{PollID: poll.ID, ViewerID: viewer})
	view := result.(*models.PollView)
	assert.Nil(t, view.Results)
	assert.Equal(t, 0, view.TotalVotes)
	for _, opt := range view.Options {
		assert.Equal(t, 0, opt.Votes)
	}

	result = ask(t, system, pid, &CastVoteMsg{PollID: poll.ID, OptionID: poll.Options[1].ID, VoterID: viewer})
	voteResult := result.(*VoteResult)
	assert.Equal(t, 2, voteResult.Poll.TotalVotes)
	assert.NotNil(t, voteResult.Poll.Results)
}
