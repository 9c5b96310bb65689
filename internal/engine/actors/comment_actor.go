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

// Message types for Comment operations
type (
	CreateCommentMsg struct {
		PostID         uuid.UUID
		AuthorID       uuid.UUID
		AuthorUsername string
		Content        string
	}

	GetPostCommentsMsg struct {
		PostID uuid.UUID
	}
)

// MaxCommentLen bounds a single comment body.
const MaxCommentLen = 1000

// CommentActor owns the append-only comment log for every post. There is
// deliberately no edit or delete message.
type CommentActor struct {
	commentsByPost map[uuid.UUID][]*models.Comment
	metrics        *utils.MetricsCollector
	enginePID      *actor.PID
	db             database.DBAdapter
	loaded         map[uuid.UUID]bool
}

func NewCommentActor(metrics *utils.MetricsCollector, enginePID *actor.PID, db database.DBAdapter) actor.Actor {
	return &CommentActor{
		commentsByPost: make(map[uuid.UUID][]*models.Comment),
		metrics:        metrics,
		enginePID:      enginePID,
		db:             db,
		loaded:         make(map[uuid.UUID]bool),
	}
}

// Receive handles incoming messages
func (a *CommentActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("CommentActor started")

	case *actor.Stopping:
		log.Printf("CommentActor stopping")

	case *CreateCommentMsg:
		a.handleCreateComment(context, msg)

	case *GetPostCommentsMsg:
		a.handleGetComments(context, msg)

	default:
		log.Printf("CommentActor: Unknown message type: %T", msg)
	}
}

func (a *CommentActor) handleCreateComment(context actor.Context, msg *CreateCommentMsg) {
	startTime := time.Now()

	if msg.Content == "" || len(msg.Content) > MaxCommentLen {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "comment must be 1-1000 characters", nil))
		return
	}
	if msg.AuthorID == uuid.Nil {
		context.Respond(utils.NewUnauthorizedError("commenting requires a signed-in viewer"))
		return
	}

	comment := &models.Comment{
		ID:             uuid.New(),
		PostID:         msg.PostID,
		AuthorID:       msg.AuthorID,
		AuthorUsername: msg.AuthorUsername,
		Content:        msg.Content,
		CreatedAt:      time.Now(),
	}

	// Load the existing log before the save so the fresh comment is not
	// fetched back and appended a second time.
	a.ensureLoaded(msg.PostID)

	if a.db != nil {
		if err := a.db.SaveComment(stdctx.Background(), comment); err != nil {
			log.Printf("CommentActor: Failed to save comment: %v", err)
			context.Respond(err)
			return
		}
	}

	a.commentsByPost[msg.PostID] = append(a.commentsByPost[msg.PostID], comment)

	if a.enginePID != nil {
		context.Send(a.enginePID, &IncrementCommentCountMsg{PostID: msg.PostID})
	}

	a.metrics.AddOperationLatency("create_comment", time.Since(startTime))
	context.Respond(comment)
}

func (a *CommentActor) handleGetComments(context actor.Context, msg *GetPostCommentsMsg) {
	a.ensureLoaded(msg.PostID)

	comments := make([]*models.Comment, len(a.commentsByPost[msg.PostID]))
	copy(comments, a.commentsByPost[msg.PostID])
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	context.Respond(comments)
}

// ensureLoaded pulls the comment log for a post out of the database the
// first time that post is touched.
func (a *CommentActor) ensureLoaded(postID uuid.UUID) {
	if a.db == nil || a.loaded[postID] {
		return
	}
	comments, err := a.db.GetPostComments(stdctx.Background(), postID)
	if err != nil {
		log.Printf("CommentActor: Failed to load comments for post %s: %v", postID, err)
		return
	}
	a.commentsByPost[postID] = comments
	a.loaded[postID] = true
}
