package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"pollitago/internal/engine/actors"
	"pollitago/internal/middleware"
	"pollitago/internal/payments"
	"pollitago/internal/utils"

	"github.com/google/uuid"
)

// CreateTipRequest opens a checkout session to tip a poll or opinion creator.
type CreateTipRequest struct {
	TargetID string  `json:"targetId"`
	Kind     string  `json:"kind"` // "poll" or "opinion"
	Amount   float64 `json:"amount"`
}

// HandleCreateTip creates the hosted checkout session for a tip. The tip is
// only recorded once the provider confirms completion via webhook.
func (s *Server) HandleCreateTip() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		payerID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var req CreateTipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if req.Amount <= 0 {
			http.Error(w, "Tip amount must be positive", http.StatusBadRequest)
			return
		}
		if req.Kind != "poll" && req.Kind != "opinion" {
			http.Error(w, "Kind must be poll or opinion", http.StatusBadRequest)
			return
		}

		targetID, err := uuid.Parse(req.TargetID)
		if err != nil {
			http.Error(w, "Invalid target ID format", http.StatusBadRequest)
			return
		}

		if s.Checkout == nil {
			http.Error(w, "Payments are not configured", http.StatusServiceUnavailable)
			return
		}

		session, err := s.Checkout.CreateSession(r.Context(), payments.SessionRequest{
			Purpose:    payments.PurposeTip,
			TargetID:   targetID,
			TargetKind: req.Kind,
			PayerID:    payerID,
			Amount:     req.Amount,
			Currency:   s.Currency,
			Label:      "PollitAGo tip",
		})
		if err != nil {
			log.Printf("Payments: Failed to create tip session: %v", err)
			if appErr, ok := err.(*utils.AppError); ok {
				http.Error(w, appErr.Error(), utils.AppErrorToHTTPStatus(appErr.Code))
				return
			}
			http.Error(w, "Failed to create checkout session", http.StatusBadGateway)
			return
		}

		writeJSON(w, session)
	}
}

// HandlePaymentWebhook receives provider completion events. The signature
// check inside VerifyEvent is the only authentication on this route.
func (s *Server) HandlePaymentWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if s.Checkout == nil {
			http.Error(w, "Payments are not configured", http.StatusServiceUnavailable)
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
		if err != nil {
			http.Error(w, "Failed to read payload", http.StatusBadRequest)
			return
		}

		event, err := s.Checkout.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			log.Printf("Payments: Webhook verification failed: %v", err)
			http.Error(w, "Invalid webhook signature", http.StatusBadRequest)
			return
		}
		if event == nil {
			// Not a completion event; acknowledge and move on.
			w.WriteHeader(http.StatusOK)
			return
		}

		if err := s.applyCompletedPayment(event); err != nil {
			log.Printf("Payments: Failed to apply completion %s: %v", event.SessionID, err)
			http.Error(w, "Failed to apply payment", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) applyCompletedPayment(event *payments.CompletedEvent) error {
	switch event.Purpose {
	case payments.PurposeTip:
		var msg interface{}
		pid := s.Engine.PollActor()
		if event.TargetKind == "opinion" {
			pid = s.Engine.OpinionActor()
			msg = &actors.RecordOpinionTipMsg{
				OpinionID:   event.TargetID,
				TipperID:    event.PayerID,
				AmountCents: event.AmountCents,
				SessionID:   event.SessionID,
			}
		} else {
			msg = &actors.RecordPollTipMsg{
				PollID:      event.TargetID,
				TipperID:    event.PayerID,
				AmountCents: event.AmountCents,
				SessionID:   event.SessionID,
			}
		}

		result, err := s.Context.RequestFuture(pid, msg, s.RequestTimeout).Result()
		if err != nil {
			return err
		}
		if appErr, ok := result.(*utils.AppError); ok {
			// Duplicate deliveries of the same session are expected and
			// already recorded.
			if appErr.Code == utils.ErrDuplicate {
				return nil
			}
			return appErr
		}
		return nil

	case payments.PurposePledge:
		log.Printf("Payments: Pledge for poll %s funded by session %s", event.TargetID, event.SessionID)
		return nil

	default:
		return fmt.Errorf("unknown payment purpose %q", event.Purpose)
	}
}
