package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"pollitago/internal/engine/actors"
	"pollitago/internal/middleware"
	"pollitago/internal/models"
	"pollitago/internal/payments"
	"pollitago/internal/utils"

	"github.com/google/uuid"
)

// CreatePollRequest represents a request to create a new poll
type CreatePollRequest struct {
	Question     string                   `json:"question"`
	Options      []actors.PollOptionInput `json:"options"`
	Deadline     time.Time                `json:"deadline"`
	PledgeAmount float64                  `json:"pledgeAmount"`
}

// CreatePollResponse carries the created poll plus, when the poll pledges a
// reward, the checkout session the creator must complete to fund it.
type CreatePollResponse struct {
	Poll     *models.PollView  `json:"poll"`
	Checkout *payments.Session `json:"checkout,omitempty"`
}

// VoteRequest represents a request to vote on a poll
type VoteRequest struct {
	PollID   string `json:"pollId"`
	OptionID string `json:"optionId"`
}

// LikeRequest toggles a like on a poll or opinion.
type LikeRequest struct {
	TargetID string `json:"targetId"`
	Kind     string `json:"kind"` // "poll" or "opinion"
	Liked    bool   `json:"liked"`
}

// DecidePledgeRequest resolves a funded poll's pledge.
type DecidePledgeRequest struct {
	PollID  string `json:"pollId"`
	Outcome string `json:"outcome"` // "accepted" or "tipped_crowd"
}

// HandlePoll handles poll creation and retrieval
func (s *Server) HandlePoll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			creatorID, ok := middleware.GetUserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			var req CreatePollRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}

			future := s.Context.RequestFuture(s.Engine.PollActor(), &actors.CreatePollMsg{
				Question:        req.Question,
				CreatorID:       creatorID,
				CreatorUsername: s.usernameFor(creatorID),
				Options:         req.Options,
				Deadline:        req.Deadline,
				PledgeAmount:    req.PledgeAmount,
			}, s.RequestTimeout)

			result, err := future.Result()
			if err != nil {
				http.Error(w, fmt.Sprintf("Failed to create poll: %v", err), http.StatusInternalServerError)
				return
			}
			if appErr, ok := result.(*utils.AppError); ok {
				http.Error(w, appErr.Error(), utils.AppErrorToHTTPStatus(appErr.Code))
				return
			}

			view := result.(*models.PollView)
			resp := &CreatePollResponse{Poll: view}

			// A pledged poll is only funded once the creator pays; hand back
			// the checkout session alongside the poll.
			if req.PledgeAmount > 0 && s.Checkout != nil {
				session, err := s.Checkout.CreateSession(r.Context(), payments.SessionRequest{
					Purpose:    payments.PurposePledge,
					TargetID:   view.ID,
					TargetKind: "poll",
					PayerID:    creatorID,
					Amount:     req.PledgeAmount,
					Currency:   s.Currency,
					Label:      fmt.Sprintf("Pledge for poll: %s", view.Question),
				})
				if err != nil {
					// The poll exists either way; the creator can retry
					// funding from the UI.
					if appErr, ok := err.(*utils.AppError); ok {
						http.Error(w, appErr.Error(), utils.AppErrorToHTTPStatus(appErr.Code))
						return
					}
					http.Error(w, "Failed to create checkout session", http.StatusBadGateway)
					return
				}
				resp.Checkout = session
			}

			writeJSON(w, resp)

		case http.MethodGet:
			viewerID, _ := middleware.GetUserIDFromContext(r.Context())

			if creatorParam := r.URL.Query().Get("creatorId"); creatorParam != "" {
				creatorID, err := uuid.Parse(creatorParam)
				if err != nil {
					http.Error(w, "Invalid creator ID format", http.StatusBadRequest)
					return
				}

				future := s.Context.RequestFuture(s.Engine.PollActor(),
					&actors.GetCreatorPollsMsg{CreatorID: creatorID, ViewerID: viewerID},
					s.RequestTimeout)

				result, err := future.Result()
				if err != nil {
					http.Error(w, fmt.Sprintf("Failed to get polls: %v", err), http.StatusInternalServerError)
					return
				}
				respondActorResult(w, result)
				return
			}

			pollID := r.URL.Query().Get("id")
			if pollID == "" {
				http.Error(w, "Poll ID is required", http.StatusBadRequest)
				return
			}
			id, err := uuid.Parse(pollID)
			if err != nil {
				http.Error(w, "Invalid poll ID format", http.StatusBadRequest)
				return
			}

			future := s.Context.RequestFuture(s.Engine.PollActor(),
				&actors.GetPollMsg{PollID: id, ViewerID: viewerID},
				s.RequestTimeout)

			result, err := future.Result()
			if err != nil {
				http.Error(w, fmt.Sprintf("Failed to get poll: %v", err), http.StatusInternalServerError)
				return
			}
			respondActorResult(w, result)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleVote handles ballot casting
func (s *Server) HandleVote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		voterID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var req VoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		pollID, err := uuid.Parse(req.PollID)
		if err != nil {
			http.Error(w, "Invalid poll ID format", http.StatusBadRequest)
			return
		}
		optionID, err := uuid.Parse(req.OptionID)
		if err != nil {
			http.Error(w, "Invalid option ID format", http.StatusBadRequest)
			return
		}

		future := s.Context.RequestFuture(s.Engine.PollActor(), &actors.CastVoteMsg{
			PollID:   pollID,
			OptionID: optionID,
			VoterID:  voterID,
		}, s.RequestTimeout)

		result, err := future.Result()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to process vote: %v", err), http.StatusInternalServerError)
			return
		}
		respondActorResult(w, result)
	}
}

// HandleLike toggles a like on a poll or opinion.
func (s *Server) HandleLike() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var req LikeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		targetID, err := uuid.Parse(req.TargetID)
		if err != nil {
			http.Error(w, "Invalid target ID format", http.StatusBadRequest)
			return
		}

		var msg interface{}
		switch req.Kind {
		case "poll", "":
			msg = &actors.LikePollMsg{PollID: targetID, UserID: userID, Liked: req.Liked}
		case "opinion":
			msg = &actors.LikeOpinionMsg{OpinionID: targetID, UserID: userID, Liked: req.Liked}
		default:
			http.Error(w, "Kind must be poll or opinion", http.StatusBadRequest)
			return
		}

		var pid = s.Engine.PollActor()
		if req.Kind == "opinion" {
			pid = s.Engine.OpinionActor()
		}

		future := s.Context.RequestFuture(pid, msg, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to process like: %v", err), http.StatusInternalServerError)
			return
		}
		respondActorResult(w, result)
	}
}

// HandleDecidePledge resolves the pledge on a closed, funded poll.
func (s *Server) HandleDecidePledge() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		actorID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var req DecidePledgeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		pollID, err := uuid.Parse(req.PollID)
		if err != nil {
			http.Error(w, "Invalid poll ID format", http.StatusBadRequest)
			return
		}

		outcome := models.PledgeOutcome(req.Outcome)
		future := s.Context.RequestFuture(s.Engine.PollActor(), &actors.DecidePledgeMsg{
			PollID:  pollID,
			ActorID: actorID,
			Outcome: outcome,
		}, s.RequestTimeout)

		result, err := future.Result()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to decide pledge: %v", err), http.StatusInternalServerError)
			return
		}
		respondActorResult(w, result)
	}
}

// HandleFeed merges polls and opinions into one reverse-chronological feed.
func (s *Server) HandleFeed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		viewerID, _ := middleware.GetUserIDFromContext(r.Context())

		limit := 25
		if q := r.URL.Query().Get("limit"); q != "" {
			if _, err := fmt.Sscanf(q, "%d", &limit); err != nil || limit <= 0 {
				http.Error(w, "Invalid limit", http.StatusBadRequest)
				return
			}
		}

		pollFuture := s.Context.RequestFuture(s.Engine.PollActor(),
			&actors.GetPollFeedMsg{ViewerID: viewerID, Limit: limit}, s.RequestTimeout)
		opinionFuture := s.Context.RequestFuture(s.Engine.OpinionActor(),
			&actors.GetOpinionFeedMsg{ViewerID: viewerID, Limit: limit}, s.RequestTimeout)

		pollResult, err := pollFuture.Result()
		if err != nil {
			http.Error(w, "Failed to fetch feed", http.StatusInternalServerError)
			return
		}
		opinionResult, err := opinionFuture.Result()
		if err != nil {
			http.Error(w, "Failed to fetch feed", http.StatusInternalServerError)
			return
		}

		polls, _ := pollResult.([]*models.PollView)
		opinions, _ := opinionResult.([]*models.OpinionView)

		items := make([]*models.FeedItem, 0, len(polls)+len(opinions))
		for _, p := range polls {
			items = append(items, &models.FeedItem{Kind: models.FeedItemPoll, Poll: p})
		}
		for _, o := range opinions {
			items = append(items, &models.FeedItem{Kind: models.FeedItemOpinion, Opinion: o})
		}
		sort.Slice(items, func(i, j int) bool {
			return items[i].PostedAt().After(items[j].PostedAt())
		})
		if len(items) > limit {
			items = items[:limit]
		}

		writeJSON(w, items)
	}
}

// HandleOpinion handles opinion creation and retrieval
func (s *Server) HandleOpinion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			creatorID, ok := middleware.GetUserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			var req struct {
				Text string `json:"text"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}

			username := s.usernameFor(creatorID)

			future := s.Context.RequestFuture(s.Engine.OpinionActor(), &actors.CreateOpinionMsg{
				Text:            req.Text,
				CreatorID:       creatorID,
				CreatorUsername: username,
			}, s.RequestTimeout)

			result, err := future.Result()
			if err != nil {
				http.Error(w, fmt.Sprintf("Failed to create opinion: %v", err), http.StatusInternalServerError)
				return
			}
			respondActorResult(w, result)

		case http.MethodGet:
			opinionID := r.URL.Query().Get("id")
			if opinionID == "" {
				http.Error(w, "Opinion ID is required", http.StatusBadRequest)
				return
			}
			id, err := uuid.Parse(opinionID)
			if err != nil {
				http.Error(w, "Invalid opinion ID format", http.StatusBadRequest)
				return
			}

			viewerID, _ := middleware.GetUserIDFromContext(r.Context())

			future := s.Context.RequestFuture(s.Engine.OpinionActor(),
				&actors.GetOpinionMsg{OpinionID: id, ViewerID: viewerID},
				s.RequestTimeout)

			result, err := future.Result()
			if err != nil {
				http.Error(w, fmt.Sprintf("Failed to get opinion: %v", err), http.StatusInternalServerError)
				return
			}
			respondActorResult(w, result)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// usernameFor resolves a display name through the user supervisor. Failing
// lookups degrade to an empty name rather than failing the request.
func (s *Server) usernameFor(userID uuid.UUID) string {
	future := s.Context.RequestFuture(s.Engine.UserSupervisor(),
		&actors.GetUserProfileMsg{UserID: userID}, s.RequestTimeout)
	result, err := future.Result()
	if err != nil {
		return ""
	}
	if state, ok := result.(*actors.UserState); ok {
		return state.Username
	}
	return ""
}
