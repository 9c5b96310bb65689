// internal/payments/payments.go
package payments

import (
	"context"
	"math"

	"github.com/google/uuid"
)

// PurposeKind tags what a checkout session pays for; it rides in the session
// metadata and comes back on the completion event for reconciliation.
type PurposeKind string

const (
	PurposeTip    PurposeKind = "tip"
	PurposePledge PurposeKind = "pledge"
)

// SessionRequest describes one checkout session. Amount is in major currency
// units (dollars); the provider boundary converts to minor units.
type SessionRequest struct {
	Purpose    PurposeKind
	TargetID   uuid.UUID // poll or opinion being tipped / pledge-funded
	TargetKind string    // "poll" or "opinion"
	PayerID    uuid.UUID
	Amount     float64
	Currency   string
	Label      string // line-item display text
}

// Session is the provider's answer: where to send the payer.
type Session struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirectUrl"`
}

// CompletedEvent is a verified session-completion notification with the
// original metadata echoed back.
type CompletedEvent struct {
	SessionID   string
	Purpose     PurposeKind
	TargetID    uuid.UUID
	TargetKind  string
	PayerID     uuid.UUID
	AmountCents int64
}

// CheckoutProvider is the hosted-checkout boundary. Session creation failures
// are recoverable; callers surface a retry affordance and record nothing.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	// VerifyEvent authenticates a webhook payload and returns the completion
	// it carries, or nil when the event type is not a session completion.
	VerifyEvent(payload []byte, signature string) (*CompletedEvent, error)
}

// MinorUnits converts a major-unit amount to minor units (dollars to cents).
// The rounding here is a contract with the provider: anything else produces
// off-by-cent charges.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
