package actors

import (
	"testing"

	"pollitago/internal/models"
	"pollitago/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func spawnOpinionActor(t *testing.T) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewOpinionActor(utils.NewMetricsCollector(), nil, nil)
	}))
	return system, pid
}

func TestCreateOpinionValidation(t *testing.T) {
	system, pid := spawnOpinionActor(t)

	result := ask(t, system, pid, &CreateOpinionMsg{Text: "", CreatorID: uuid.New()})
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)
}

func TestOpinionTipReplayRejected(t *testing.T) {
	system, pid := spawnOpinionActor(t)
	creator := uuid.New()

	result := ask(t, system, pid, &CreateOpinionMsg{
		Text:            "Hot take: soup is a beverage.",
		CreatorID:       creator,
		CreatorUsername: "alice",
	})
	view, ok := result.(*models.OpinionView)
	assert.True(t, ok, "expected *models.OpinionView, got %T", result)

	tip := &RecordOpinionTipMsg{
		OpinionID:   view.ID,
		TipperID:    uuid.New(),
		AmountCents: 200,
		SessionID:   "cs_opinion_once",
	}

	result = ask(t, system, pid, tip)
	status, ok := result.(*models.StatusResponse)
	assert.True(t, ok, "expected *models.StatusResponse, got %T", result)
	assert.True(t, status.Success)

	result = ask(t, system, pid, tip)
	appErr, ok := result.(*utils.AppError)
	assert.True(t, ok, "expected *utils.AppError, got %T", result)
	assert.Equal(t, utils.ErrDuplicate, appErr.Code)

	check := ask(t, system, pid, &GetOpinionMsg{OpinionID: view.ID, ViewerID: creator})
	assert.Equal(t, 1, check.(*models.OpinionView).TipCount)
}
