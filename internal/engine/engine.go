package engine

import (
	"log"

	"pollitago/internal/database"
	"pollitago/internal/engine/actors"
	"pollitago/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Engine coordinates the domain actors. It is itself an actor so the domain
// actors can route cross-cutting messages (point awards, comment counts)
// through it without holding each other's PIDs.
type Engine struct {
	system         *actor.ActorSystem
	pollActor      *actor.PID
	opinionActor   *actor.PID
	commentActor   *actor.PID
	userSupervisor *actor.PID
	metrics        *utils.MetricsCollector
	db             database.DBAdapter
}

// NewEngine creates the engine and spawns the domain actors. db may be nil
// for in-memory operation.
func NewEngine(system *actor.ActorSystem, metrics *utils.MetricsCollector, db database.DBAdapter) *Engine {
	e := &Engine{
		system:  system,
		metrics: metrics,
		db:      db,
	}

	enginePID := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return &engineRouter{engine: e}
	}))

	e.userSupervisor = system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewUserSupervisor(db)
	}))
	e.pollActor = system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewPollActor(metrics, enginePID, db)
	}))
	e.opinionActor = system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewOpinionActor(metrics, enginePID, db)
	}))
	e.commentActor = system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewCommentActor(metrics, enginePID, db)
	}))

	log.Printf("Engine: All domain actors spawned")
	return e
}

func (e *Engine) PollActor() *actor.PID      { return e.pollActor }
func (e *Engine) OpinionActor() *actor.PID   { return e.opinionActor }
func (e *Engine) CommentActor() *actor.PID   { return e.commentActor }
func (e *Engine) UserSupervisor() *actor.PID { return e.userSupervisor }

// engineRouter fans cross-cutting messages out to their owners. The comment
// count increment goes to both post actors; whichever does not own the post
// ignores it.
type engineRouter struct {
	engine *Engine
}

func (r *engineRouter) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("Engine: Router started")

	case *actors.UpdatePointsMsg:
		context.Send(r.engine.userSupervisor, msg)

	case *actors.IncrementCommentCountMsg:
		context.Send(r.engine.pollActor, msg)
		context.Send(r.engine.opinionActor, msg)
	}
}
