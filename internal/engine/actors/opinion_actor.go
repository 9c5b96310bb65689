package actors

import (
	stdctx "context"
	"log"
	"sort"
	"time"

	"pollitago/internal/database"
	"pollitago/internal/models"
	"pollitago/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for Opinion operations
type (
	CreateOpinionMsg struct {
		Text            string
		CreatorID       uuid.UUID
		CreatorUsername string
	}

	GetOpinionMsg struct {
		OpinionID uuid.UUID
		ViewerID  uuid.UUID
	}

	GetOpinionFeedMsg struct {
		ViewerID uuid.UUID
		Limit    int
	}

	LikeOpinionMsg struct {
		OpinionID uuid.UUID
		UserID    uuid.UUID
		Liked     bool
	}

	RecordOpinionTipMsg struct {
		OpinionID   uuid.UUID
		TipperID    uuid.UUID
		AmountCents int64
		SessionID   string
	}

	loadOpinionsFromDBMsg struct{}
)

// MaxOpinionTextLen bounds the body of an opinion post.
const MaxOpinionTextLen = 500

// OpinionActor owns the short-form posts that carry no options or votes.
type OpinionActor struct {
	opinionsByID map[uuid.UUID]*models.Opinion
	likedBy      map[uuid.UUID]map[uuid.UUID]bool
	tipSessions  map[string]bool
	metrics      *utils.MetricsCollector
	enginePID    *actor.PID
	db           database.DBAdapter
}

func NewOpinionActor(metrics *utils.MetricsCollector, enginePID *actor.PID, db database.DBAdapter) actor.Actor {
	return &OpinionActor{
		opinionsByID: make(map[uuid.UUID]*models.Opinion),
		likedBy:      make(map[uuid.UUID]map[uuid.UUID]bool),
		tipSessions:  make(map[string]bool),
		metrics:      metrics,
		enginePID:    enginePID,
		db:           db,
	}
}

// Receive handles incoming messages
func (a *OpinionActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("OpinionActor started")
		if a.db != nil {
			context.Send(context.Self(), &loadOpinionsFromDBMsg{})
		}

	case *actor.Stopping:
		log.Printf("OpinionActor stopping")

	case *loadOpinionsFromDBMsg:
		a.handleLoadOpinions()

	case *CreateOpinionMsg:
		a.handleCreateOpinion(context, msg)

	case *GetOpinionMsg:
		a.handleGetOpinion(context, msg)

	case *GetOpinionFeedMsg:
		a.handleGetFeed(context, msg)

	case *LikeOpinionMsg:
		a.handleLike(context, msg)

	case *RecordOpinionTipMsg:
		a.handleRecordTip(context, msg)

	case *IncrementCommentCountMsg:
		if opinion, exists := a.opinionsByID[msg.PostID]; exists {
			opinion.CommentCount++
		}

	case *GetCountsMsg:
		context.Respond(len(a.opinionsByID))

	default:
		log.Printf("OpinionActor: Unknown message type: %T", msg)
	}
}

func (a *OpinionActor) handleLoadOpinions() {
	opinions, err := a.db.GetRecentOpinions(stdctx.Background(), 0)
	if err != nil {
		log.Printf("OpinionActor: CRITICAL - Failed to load opinions: %v", err)
		return
	}
	for _, opinion := range opinions {
		a.opinionsByID[opinion.ID] = opinion
	}
	log.Printf("OpinionActor: Loaded %d opinions from database", len(opinions))
}

func (a *OpinionActor) handleCreateOpinion(context actor.Context, msg *CreateOpinionMsg) {
	startTime := time.Now()

	if msg.Text == "" || len(msg.Text) > MaxOpinionTextLen {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "opinion text must be 1-500 characters", nil))
		return
	}

	newOpinion := &models.Opinion{
		ID:              uuid.New(),
		CreatorID:       msg.CreatorID,
		CreatorUsername: msg.CreatorUsername,
		Text:            msg.Text,
		CreatedAt:       time.Now(),
	}

	if a.db != nil {
		if err := a.db.SaveOpinion(stdctx.Background(), newOpinion); err != nil {
			log.Printf("OpinionActor: Failed to save opinion: %v", err)
			context.Respond(err)
			return
		}
	}

	a.opinionsByID[newOpinion.ID] = newOpinion
	a.metrics.AddOperationLatency("create_opinion", time.Since(startTime))
	context.Respond(a.view(newOpinion, msg.CreatorID))
}

func (a *OpinionActor) handleGetOpinion(context actor.Context, msg *GetOpinionMsg) {
	opinion, exists := a.opinionsByID[msg.OpinionID]
	if !exists {
		context.Respond(utils.NewAppError(utils.ErrNotFound, "opinion not found", nil))
		return
	}
	context.Respond(a.view(opinion, msg.ViewerID))
}

func (a *OpinionActor) handleGetFeed(context actor.Context, msg *GetOpinionFeedMsg) {
	opinions := make([]*models.Opinion, 0, len(a.opinionsByID))
	for _, opinion := range a.opinionsByID {
		opinions = append(opinions, opinion)
	}
	sort.Slice(opinions, func(i, j int) bool {
		return opinions[i].CreatedAt.After(opinions[j].CreatedAt)
	})
	if msg.Limit > 0 && len(opinions) > msg.Limit {
		opinions = opinions[:msg.Limit]
	}

	views := make([]*models.OpinionView, 0, len(opinions))
	for _, opinion := range opinions {
		views = append(views, a.view(opinion, msg.ViewerID))
	}
	context.Respond(views)
}

func (a *OpinionActor) handleLike(context actor.Context, msg *LikeOpinionMsg) {
	opinion, exists := a.opinionsByID[msg.OpinionID]
	if !exists {
		context.Respond(utils.NewAppError(utils.ErrNotFound, "opinion not found", nil))
		return
	}
	if msg.UserID == uuid.Nil {
		context.Respond(utils.NewUnauthorizedError("liking requires a signed-in viewer"))
		return
	}

	changed := true
	if a.db != nil {
		var err error
		changed, err = a.db.SetLike(stdctx.Background(), opinion.ID, models.LikeOpinion, msg.UserID, msg.Liked)
		if err != nil {
			context.Respond(err)
			return
		}
	} else {
		already := a.likedBy[msg.UserID][opinion.ID]
		changed = already != msg.Liked
	}

	if changed {
		if _, ok := a.likedBy[msg.UserID]; !ok {
			a.likedBy[msg.UserID] = make(map[uuid.UUID]bool)
		}
		if msg.Liked {
			a.likedBy[msg.UserID][opinion.ID] = true
			opinion.LikeCount++
			a.notifyPoints(context, opinion.CreatorID, 1)
		} else {
			delete(a.likedBy[msg.UserID], opinion.ID)
			opinion.LikeCount--
			a.notifyPoints(context, opinion.CreatorID, -1)
		}
	}

	context.Respond(a.view(opinion, msg.UserID))
}

func (a *OpinionActor) handleRecordTip(context actor.Context, msg *RecordOpinionTipMsg) {
	opinion, exists := a.opinionsByID[msg.OpinionID]
	if !exists {
		context.Respond(utils.NewAppError(utils.ErrNotFound, "opinion not found", nil))
		return
	}

	if msg.SessionID != "" && a.tipSessions[msg.SessionID] {
		context.Respond(utils.NewAppError(utils.ErrDuplicate, "tip already recorded for this session", nil))
		return
	}

	if a.db != nil {
		if err := a.db.RecordTip(stdctx.Background(), opinion.ID, models.LikeOpinion, msg.TipperID, msg.AmountCents, msg.SessionID); err != nil {
			context.Respond(err)
			return
		}
	}

	if msg.SessionID != "" {
		a.tipSessions[msg.SessionID] = true
	}
	opinion.TipCount++
	a.notifyPoints(context, opinion.CreatorID, int(msg.AmountCents/100))

	context.Respond(&models.StatusResponse{Success: true, Message: "tip recorded"})
}

func (a *OpinionActor) notifyPoints(context actor.Context, userID uuid.UUID, delta int) {
	if a.enginePID == nil || delta == 0 {
		return
	}
	context.Send(a.enginePID, &UpdatePointsMsg{UserID: userID, Delta: delta})
}

func (a *OpinionActor) view(opinion *models.Opinion, viewerID uuid.UUID) *models.OpinionView {
	v := &models.OpinionView{Opinion: opinion}
	if viewerID != uuid.Nil {
		v.IsLiked = a.isLikedBy(opinion.ID, viewerID)
	}
	return v
}

func (a *OpinionActor) isLikedBy(targetID, userID uuid.UUID) bool {
	liked, cached := a.likedBy[userID]
	if !cached && a.db != nil {
		var err error
		liked, err = a.db.GetLikedTargets(stdctx.Background(), userID)
		if err != nil {
			log.Printf("OpinionActor: Failed to load likes for user %s: %v", userID, err)
			return false
		}
		a.likedBy[userID] = liked
	}
	return liked[targetID]
}
