package handlers

import (
	"net/http"
	"time"

	"pollitago/internal/engine/actors"
)

// HandleHealth handles health check requests
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		pollFuture := s.Context.RequestFuture(s.Engine.PollActor(), &actors.GetCountsMsg{}, s.RequestTimeout)
		pollResult, err := pollFuture.Result()
		if err != nil {
			http.Error(w, "Failed to get poll count", http.StatusInternalServerError)
			return
		}

		opinionFuture := s.Context.RequestFuture(s.Engine.OpinionActor(), &actors.GetCountsMsg{}, s.RequestTimeout)
		opinionResult, err := opinionFuture.Result()
		if err != nil {
			http.Error(w, "Failed to get opinion count", http.StatusInternalServerError)
			return
		}

		stats, uptime := s.Metrics.Snapshot()
		writeJSON(w, map[string]interface{}{
			"status":        "healthy",
			"poll_count":    pollResult.(int),
			"opinion_count": opinionResult.(int),
			"operations":    stats,
			"uptime":        uptime.String(),
			"server_time":   time.Now(),
		})
	}
}
