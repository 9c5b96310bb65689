package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"pollitago/internal/database"
	"pollitago/internal/engine"
	"pollitago/internal/payments"
	"pollitago/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Server holds all server dependencies, including the actor system and engine
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Metrics        *utils.MetricsCollector
	DB             database.DBAdapter
	Checkout       payments.CheckoutProvider
	Currency       string
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components
func NewServer(
	system *actor.ActorSystem,
	eng *engine.Engine,
	metrics *utils.MetricsCollector,
	db database.DBAdapter,
	checkout payments.CheckoutProvider,
) *Server {
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		Metrics:        metrics,
		DB:             db,
		Checkout:       checkout,
		RequestTimeout: 5 * time.Second, // Default timeout for actor requests
	}
}

// writeJSON encodes the payload with the standard content type.
func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// respondActorResult maps an actor reply onto the HTTP response. AppError
// replies become their mapped status; everything else is encoded as JSON.
// Returns true when an error was written.
func respondActorResult(w http.ResponseWriter, result interface{}) bool {
	if appErr, ok := result.(*utils.AppError); ok {
		http.Error(w, appErr.Error(), utils.AppErrorToHTTPStatus(appErr.Code))
		return true
	}
	writeJSON(w, result)
	return false
}
