package actors

import (
	"context"
	"sort"
	"sync"
	"time"

	"pollitago/internal/models"
	"pollitago/internal/utils"

	"github.com/google/uuid"
)

// memoryDB backs actor tests that need the durable path without a running
// database. It mirrors the adapter contracts: ApplyVote rejects a second
// ballot with ALREADY_VOTED, RecordTip rejects a replayed session with
// DUPLICATE, lookups miss with NOT_FOUND.
type memoryDB struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*models.User
	polls     map[uuid.UUID]*models.Poll
	ballots   map[uuid.UUID]map[uuid.UUID]uuid.UUID
	opinions  map[uuid.UUID]*models.Opinion
	userLikes map[uuid.UUID]map[uuid.UUID]bool
	tips      map[string]bool
	comments  map[uuid.UUID][]*models.Comment
}

func newMemoryDB() *memoryDB {
	return &memoryDB{
		users:     make(map[uuid.UUID]*models.User),
		polls:     make(map[uuid.UUID]*models.Poll),
		ballots:   make(map[uuid.UUID]map[uuid.UUID]uuid.UUID),
		opinions:  make(map[uuid.UUID]*models.Opinion),
		userLikes: make(map[uuid.UUID]map[uuid.UUID]bool),
		tips:      make(map[string]bool),
		comments:  make(map[uuid.UUID][]*models.Comment),
	}
}

func clonePoll(poll *models.Poll) *models.Poll {
	clone := *poll
	clone.Options = make([]*models.PollOption, len(poll.Options))
	for i, opt := range poll.Options {
		o := *opt
		clone.Options[i] = &o
	}
	return &clone
}

func (m *memoryDB) Close(ctx context.Context) error { return nil }

func (m *memoryDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, utils.NewAppError(utils.ErrNotFound, "user not found", nil)
}

func (m *memoryDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[id]
	if !exists {
		return nil, utils.NewAppError(utils.ErrNotFound, "user not found", nil)
	}
	clone := *user
	return &clone, nil
}

func (m *memoryDB) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memoryDB) UpdateUserActivity(ctx context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, exists := m.users[id]; exists {
		user.IsConnected = active
		user.LastActive = time.Now()
	}
	return nil
}

func (m *memoryDB) UpdateUserPoints(ctx context.Context, id uuid.UUID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, exists := m.users[id]; exists {
		user.Points += delta
	}
	return nil
}

func (m *memoryDB) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*models.User, 0, len(m.users))
	for _, user := range m.users {
		clone := *user
		users = append(users, &clone)
	}
	return users, nil
}

func (m *memoryDB) SavePoll(ctx context.Context, poll *models.Poll) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls[poll.ID] = clonePoll(poll)
	if _, exists := m.ballots[poll.ID]; !exists {
		m.ballots[poll.ID] = make(map[uuid.UUID]uuid.UUID)
	}
	return nil
}

func (m *memoryDB) GetPoll(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	poll, exists := m.polls[id]
	if !exists {
		return nil, utils.NewAppError(utils.ErrNotFound, "poll not found", nil)
	}
	return clonePoll(poll), nil
}

func (m *memoryDB) GetRecentPolls(ctx context.Context, limit int) ([]*models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	polls := make([]*models.Poll, 0, len(m.polls))
	for _, poll := range m.polls {
		polls = append(polls, clonePoll(poll))
	}
	sort.Slice(polls, func(i, j int) bool {
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
	if limit > 0 && len(polls) > limit {
		polls = polls[:limit]
	}
	return polls, nil
}

func (m *memoryDB) GetPollsByCreator(ctx context.Context, creatorID uuid.UUID) ([]*models.Poll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	polls := make([]*models.Poll, 0)
	for _, poll := range m.polls {
		if poll.CreatorID == creatorID {
			polls = append(polls, clonePoll(poll))
		}
	}
	sort.Slice(polls, func(i, j int) bool {
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
	return polls, nil
}

func (m *memoryDB) ApplyVote(ctx context.Context, pollID, optionID, voterID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	poll, exists := m.polls[pollID]
	if !exists {
		return utils.NewAppError(utils.ErrNotFound, "poll not found", nil)
	}
	if _, voted := m.ballots[pollID][voterID]; voted {
		return utils.NewAppError(utils.ErrAlreadyVoted, "viewer has already voted on this poll", nil)
	}
	m.ballots[pollID][voterID] = optionID
	for _, opt := range poll.Options {
		if opt.ID == optionID {
			opt.Votes++
		}
	}
	poll.TotalVotes++
	return nil
}

func (m *memoryDB) GetPollBallots(ctx context.Context, pollID uuid.UUID) ([]*models.Ballot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ballots := make([]*models.Ballot, 0, len(m.ballots[pollID]))
	for voterID, optionID := range m.ballots[pollID] {
		ballots = append(ballots, &models.Ballot{
			PollID:   pollID,
			VoterID:  voterID,
			OptionID: optionID,
		})
	}
	return ballots, nil
}

func (m *memoryDB) SetPledgeOutcome(ctx context.Context, pollID uuid.UUID, outcome models.PledgeOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	poll, exists := m.polls[pollID]
	if !exists {
		return utils.NewAppError(utils.ErrNotFound, "poll not found", nil)
	}
	if poll.PledgeOutcome != "" && poll.PledgeOutcome != models.PledgePending {
		return utils.NewAppError(utils.ErrPledgeDecided, "pledge outcome already decided", nil)
	}
	poll.PledgeOutcome = outcome
	return nil
}

func (m *memoryDB) SaveOpinion(ctx context.Context, opinion *models.Opinion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *opinion
	m.opinions[opinion.ID] = &clone
	return nil
}

func (m *memoryDB) GetOpinion(ctx context.Context, id uuid.UUID) (*models.Opinion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	opinion, exists := m.opinions[id]
	if !exists {
		return nil, utils.NewAppError(utils.ErrNotFound, "opinion not found", nil)
	}
	clone := *opinion
	return &clone, nil
}

func (m *memoryDB) GetRecentOpinions(ctx context.Context, limit int) ([]*models.Opinion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	opinions := make([]*models.Opinion, 0, len(m.opinions))
	for _, opinion := range m.opinions {
		clone := *opinion
		opinions = append(opinions, &clone)
	}
	sort.Slice(opinions, func(i, j int) bool {
		return opinions[i].CreatedAt.After(opinions[j].CreatedAt)
	})
	if limit > 0 && len(opinions) > limit {
		opinions = opinions[:limit]
	}
	return opinions, nil
}

func (m *memoryDB) SetLike(ctx context.Context, targetID uuid.UUID, kind models.LikeTargetKind, userID uuid.UUID, liked bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.userLikes[userID]
	if set == nil {
		set = make(map[uuid.UUID]bool)
		m.userLikes[userID] = set
	}
	if set[targetID] == liked {
		return false, nil
	}
	if liked {
		set[targetID] = true
	} else {
		delete(set, targetID)
	}
	return true, nil
}

func (m *memoryDB) GetLikedTargets(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	liked := make(map[uuid.UUID]bool, len(m.userLikes[userID]))
	for id := range m.userLikes[userID] {
		liked[id] = true
	}
	return liked, nil
}

func (m *memoryDB) RecordTip(ctx context.Context, targetID uuid.UUID, kind models.LikeTargetKind, tipperID uuid.UUID, amountCents int64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tips[sessionID] {
		return utils.NewAppError(utils.ErrDuplicate, "tip already recorded for this session", nil)
	}
	m.tips[sessionID] = true
	return nil
}

func (m *memoryDB) SaveComment(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *comment
	m.comments[comment.PostID] = append(m.comments[comment.PostID], &clone)
	return nil
}

func (m *memoryDB) GetPostComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comments := make([]*models.Comment, 0, len(m.comments[postID]))
	for _, comment := range m.comments[postID] {
		clone := *comment
		comments = append(comments, &clone)
	}
	return comments, nil
}
