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

func spawnCommentActor(t *testing.T) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewCommentActor(utils.NewMetricsCollector(), nil, nil)
	}))
	return system, pid
}

func TestCreateAndListComments(t *testing.T) {
	system, pid := spawnCommentActor(t)
	postID := uuid.New()
	author := uuid.New()

	result := ask(t, system, pid, &CreateCommentMsg{
		PostID:         postID,
		AuthorID:       author,
		AuthorUsername: "alice",
		Content:        "First!",
	})
	comment, ok := result.(*models.Comment)
	assert.True(t, ok, "expected *models.Comment, got %T", result)
	assert.Equal(t, postID, comment.PostID)
	assert.Equal(t, "First!", comment.Content)
	assert.NotEqual(t, uuid.Nil, comment.ID)

	time.Sleep(5 * time.Millisecond)
	ask(t, system, pid, &CreateCommentMsg{
		PostID:         postID,
		AuthorID:       uuid.New(),
		AuthorUsername: "bob",
		Content:        "Second",
	})

	result = ask(t, system, pid, &GetPostCommentsMsg{PostID: postID})
	comments, ok := result.([]*models.Comment)
	assert.True(t, ok)
	assert.Len(t, comments, 2)
	// Newest first.
	assert.Equal(t, "Second", comments[0].Content)
	assert.Equal(t, "First!", comments[1].Content)
}

func TestEmptyCommentRejected(t *testing.T) {
	system, pid := spawnCommentActor(t)

	result := ask(t, system, pid, &CreateCommentMsg{
		PostID:   uuid.New(),
		AuthorID: uuid.New(),
		Content:  "",
	})
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)
}

func TestAnonymousCommentRejected(t *testing.T) {
	system, pid := spawnCommentActor(t)

	result := ask(t, system, pid, &CreateCommentMsg{
		PostID:  uuid.New(),
		Content: "drive-by",
	})
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, utils.ErrUnauthorized, appErr.Code)
}

func TestCommentsForUnknownPostEmpty(t *testing.T) {
	system, pid := spawnCommentActor(t)

	result := ask(t, system, pid, &GetPostCommentsMsg{PostID: uuid.New()})
	comments, ok := result.([]*models.Comment)
	assert.True(t, ok)
	assert.Empty(t, comments)
}

func TestFirstStoredCommentListedOnce(t *testing.T) {
	store := newMemoryDB()
	system := actor.NewActorSystem()
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewCommentActor(utils.NewMetricsCollector(), nil, store)
	}))

	postID := uuid.New()
	ask(t, system, pid, &CreateCommentMsg{
		PostID:         postID,
		AuthorID:       uuid.New(),
		AuthorUsername: "alice",
		Content:        "only once, please",
	})

	result := ask(t, system, pid, &GetPostCommentsMsg{PostID: postID})
	comments, ok := result.([]*models.Comment)
	assert.True(t, ok)
	assert.Len(t, comments, 1)

	ask(t, system, pid, &CreateCommentMsg{
		PostID:         postID,
		AuthorID:       uuid.New(),
		AuthorUsername: "bob",
		Content:        "me too",
	})
	result = ask(t, system, pid, &GetPostCommentsMsg{PostID: postID})
	assert.Len(t, result.([]*models.Comment), 2)
}
