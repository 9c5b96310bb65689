package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"pollitago/internal/engine/actors"
	"pollitago/internal/middleware"

	"github.com/google/uuid"
)

// CreateCommentRequest represents a request to comment on a poll or opinion
type CreateCommentRequest struct {
	PostID  string `json:"postId"`
	Content string `json:"content"`
}

// HandleComment handles comment creation and listing
func (s *Server) HandleComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			authorID, ok := middleware.GetUserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			var req CreateCommentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}

			postID, err := uuid.Parse(req.PostID)
			if err != nil {
				http.Error(w, "Invalid post ID format", http.StatusBadRequest)
				return
			}

			future := s.Context.RequestFuture(s.Engine.CommentActor(), &actors.CreateCommentMsg{
				PostID:         postID,
				AuthorID:       authorID,
				AuthorUsername: s.usernameFor(authorID),
				Content:        req.Content,
			}, s.RequestTimeout)

			result, err := future.Result()
			if err != nil {
				http.Error(w, fmt.Sprintf("Failed to create comment: %v", err), http.StatusInternalServerError)
				return
			}
			respondActorResult(w, result)

		case http.MethodGet:
			postIDStr := r.URL.Query().Get("postId")
			if postIDStr == "" {
				http.Error(w, "Post ID is required", http.StatusBadRequest)
				return
			}
			postID, err := uuid.Parse(postIDStr)
			if err != nil {
				http.Error(w, "Invalid post ID format", http.StatusBadRequest)
				return
			}

			future := s.Context.RequestFuture(s.Engine.CommentActor(),
				&actors.GetPostCommentsMsg{PostID: postID}, s.RequestTimeout)

			result, err := future.Result()
			if err != nil {
				http.Error(w, fmt.Sprintf("Failed to get comments: %v", err), http.StatusInternalServerError)
				return
			}
			respondActorResult(w, result)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
