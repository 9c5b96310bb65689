package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"pollitago/internal/engine/actors"
	"pollitago/internal/middleware"

	"github.com/google/uuid"
)

// RegisterUserRequest represents a request to register a new user
type RegisterUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	AvatarURL string `json:"avatarUrl"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleUserRegistration handles new user registration
func (s *Server) HandleUserRegistration() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req RegisterUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
			http.Error(w, "Username, email and a password of 8+ characters are required", http.StatusBadRequest)
			return
		}

		future := s.Context.RequestFuture(s.Engine.UserSupervisor(), &actors.RegisterUserMsg{
			Username:  req.Username,
			Email:     req.Email,
			Password:  req.Password,
			AvatarURL: req.AvatarURL,
		}, s.RequestTimeout)

		result, err := future.Result()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to register user: %v", err), http.StatusInternalServerError)
			return
		}
		respondActorResult(w, result)
	}
}

// HandleUserLogin handles user authentication
func (s *Server) HandleUserLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		future := s.Context.RequestFuture(s.Engine.UserSupervisor(), &actors.LoginMsg{
			Email:    req.Email,
			Password: req.Password,
		}, s.RequestTimeout)

		result, err := future.Result()
		if err != nil {
			http.Error(w, fmt.Sprintf("Login failed: %v", err), http.StatusInternalServerError)
			return
		}
		respondActorResult(w, result)
	}
}

// HandleUserProfile returns a user's public profile
func (s *Server) HandleUserProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		userIDStr := r.URL.Query().Get("userId")
		var userID uuid.UUID
		if userIDStr == "" {
			// Default to the authenticated caller's own profile.
			id, ok := middleware.GetUserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "User ID is required", http.StatusBadRequest)
				return
			}
			userID = id
		} else {
			id, err := uuid.Parse(userIDStr)
			if err != nil {
				http.Error(w, "Invalid user ID format", http.StatusBadRequest)
				return
			}
			userID = id
		}

		future := s.Context.RequestFuture(s.Engine.UserSupervisor(),
			&actors.GetUserProfileMsg{UserID: userID}, s.RequestTimeout)

		result, err := future.Result()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get profile: %v", err), http.StatusInternalServerError)
			return
		}
		if result == nil {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		respondActorResult(w, result)
	}
}

// HandleUserLogout marks the user disconnected
func (s *Server) HandleUserLogout() http.HandlerFunc {
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

		future := s.Context.RequestFuture(s.Engine.UserSupervisor(),
			&actors.DisconnectUserMsg{UserID: userID}, s.RequestTimeout)

		result, err := future.Result()
		if err != nil {
			http.Error(w, "Logout failed", http.StatusInternalServerError)
			return
		}
		respondActorResult(w, result)
	}
}
