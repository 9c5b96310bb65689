// internal/payments/stripe.go
package payments

import (
	"context"
	"strconv"

	"pollitago/internal/utils"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeProvider implements CheckoutProvider against Stripe's hosted
// checkout pages.
type StripeProvider struct {
	webhookSecret string
	successURL    string
	cancelURL     string
}

// NewStripeProvider configures the Stripe client. secretKey is the API key,
// webhookSecret signs incoming events.
func NewStripeProvider(secretKey, webhookSecret, successURL, cancelURL string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}
}

// CreateSession opens a hosted checkout session for the requested amount.
func (s *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}
	label := req.Label
	if label == "" {
		label = "PollitAGo payment"
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(label),
					},
					UnitAmount: stripe.Int64(MinorUnits(req.Amount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
	}
	params.Context = ctx
	params.AddMetadata("purpose", string(req.Purpose))
	params.AddMetadata("targetId", req.TargetID.String())
	params.AddMetadata("targetKind", req.TargetKind)
	params.AddMetadata("payerId", req.PayerID.String())

	sess, err := session.New(params)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrPaymentFailed, "checkout session creation failed", err)
	}

	return &Session{
		ID:          sess.ID,
		RedirectURL: sess.URL,
	}, nil
}

// VerifyEvent checks the event signature and extracts a completed checkout
// session. Non-completion events return (nil, nil) and are ignored upstream.
func (s *StripeProvider) VerifyEvent(payload []byte, signature string) (*CompletedEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrInvalidToken, "webhook signature verification failed", err)
	}

	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	obj := event.Data.Object
	sessionID, _ := obj["id"].(string)

	var amountCents int64
	switch v := obj["amount_total"].(type) {
	case float64:
		amountCents = int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			amountCents = n
		}
	}

	metadata, _ := obj["metadata"].(map[string]interface{})
	getMeta := func(key string) string {
		if metadata == nil {
			return ""
		}
		v, _ := metadata[key].(string)
		return v
	}

	targetID, err := uuid.Parse(getMeta("targetId"))
	if err != nil {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "completion event missing target metadata", err)
	}
	payerID, err := uuid.Parse(getMeta("payerId"))
	if err != nil {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "completion event missing payer metadata", err)
	}

	return &CompletedEvent{
		SessionID:   sessionID,
		Purpose:     PurposeKind(getMeta("purpose")),
		TargetID:    targetID,
		TargetKind:  getMeta("targetKind"),
		PayerID:     payerID,
		AmountCents: amountCents,
	}, nil
}
