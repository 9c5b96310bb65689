package handlers

import (
	"bytes"
	stdctx "context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pollitago/internal/engine"
	"pollitago/internal/engine/actors"
	"pollitago/internal/middleware"
	"pollitago/internal/models"
	"pollitago/internal/payments"
	"pollitago/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// fakeCheckout stands in for the hosted checkout provider. Sessions are
// numbered; VerifyEvent accepts the "test-signature" signature and replays
// whatever event the test staged.
type fakeCheckout struct {
	sessions int
	lastReq  payments.SessionRequest
	event    *payments.CompletedEvent
}

func (f *fakeCheckout) CreateSession(ctx stdctx.Context, req payments.SessionRequest) (*payments.Session, error) {
	f.sessions++
	f.lastReq = req
	id := fmt.Sprintf("cs_test_%d", f.sessions)
	return &payments.Session{ID: id, RedirectURL: "https://checkout.example/" + id}, nil
}

func (f *fakeCheckout) VerifyEvent(payload []byte, signature string) (*payments.CompletedEvent, error) {
	if signature != "test-signature" {
		return nil, utils.NewAppError(utils.ErrInvalidToken, "bad signature", nil)
	}
	return f.event, nil
}

func newTestServer(t *testing.T) (*Server, *fakeCheckout) {
	t.Helper()
	middleware.SetJWTSecret("test-secret")
	system := actor.NewActorSystem()
	metrics := utils.NewMetricsCollector()
	eng := engine.NewEngine(system, metrics, nil)
	checkout := &fakeCheckout{}
	return NewServer(system, eng, metrics, nil, checkout), checkout
}

func authedRequest(method, target string, body interface{}, userID uuid.UUID) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if userID != uuid.Nil {
		req = req.WithContext(middleware.SetUserIDInContext(req.Context(), userID))
	}
	return req
}

func registerUser(t *testing.T, s *Server, email string) uuid.UUID {
	t.Helper()
	rec := httptest.NewRecorder()
	s.HandleUserRegistration()(rec, authedRequest(http.MethodPost, "/user/register", RegisterUserRequest{
		Username: "user-" + email,
		Email:    email,
		Password: "password123",
	}, uuid.Nil))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state actors.UserState
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	return state.ID
}

func createTestPoll(t *testing.T, s *Server, creator uuid.UUID, pledge float64) CreatePollResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	s.HandlePoll()(rec, authedRequest(http.MethodPost, "/poll", CreatePollRequest{
		Question: "Tabs or spaces?",
		Deadline: time.Now().Add(24 * time.Hour),
		Options: []actors.PollOptionInput{
			{Text: "Tabs"},
			{Text: "Spaces"},
		},
		PledgeAmount: pledge,
	}, creator))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CreatePollResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRegisterLoginFlow(t *testing.T) {
	s, _ := newTestServer(t)
	registerUser(t, s, "flow@example.com")

	rec := httptest.NewRecorder()
	s.HandleUserLogin()(rec, authedRequest(http.MethodPost, "/user/login", LoginRequest{
		Email:    "flow@example.com",
		Password: "password123",
	}, uuid.Nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&login))
	assert.True(t, login.Success)
	assert.NotEmpty(t, login.Token)
}

func TestJWTMiddlewareGuardsVoting(t *testing.T) {
	s, _ := newTestServer(t)

	handler := middleware.ApplyJWTMiddleware(s.HandleVote(), "/poll/vote")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/poll/vote", bytes.NewBufferString("{}"))
	handler(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A valid bearer token gets through to the handler.
	userID := registerUser(t, s, "voter@example.com")
	creator := registerUser(t, s, "creator@example.com")
	poll := createTestPoll(t, s, creator, 0)

	token, err := middleware.GenerateToken(userID)
	assert.NoError(t, err)

	body, _ := json.Marshal(VoteRequest{
		PollID:   poll.Poll.ID.String(),
		OptionID: poll.Poll.Options[0].ID.String(),
	})
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/poll/vote", bytes.NewBuffer(body))
	req.Header.Set("Authorization", "Bearer "+token)
	handler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestPledgedPollReturnsCheckoutSession(t *testing.T) {
	s, checkout := newTestServer(t)
	s.Currency = "eur"
	creator := registerUser(t, s, "pledger@example.com")

	resp := createTestPoll(t, s, creator, 10.0)
	assert.NotNil(t, resp.Checkout)
	assert.Equal(t, 1, checkout.sessions)
	assert.NotEmpty(t, resp.Checkout.RedirectURL)
	assert.Equal(t, payments.PurposePledge, checkout.lastReq.Purpose)
	assert.Equal(t, "eur", checkout.lastReq.Currency)

	plain := createTestPoll(t, s, creator, 0)
	assert.Nil(t, plain.Checkout)
	assert.Equal(t, 1, checkout.sessions)
}

func TestVoteAndDuplicateVote(t *testing.T) {
	s, _ := newTestServer(t)
	creator := registerUser(t, s, "c@example.com")
	voter := registerUser(t, s, "v@example.com")
	poll := createTestPoll(t, s, creator, 0)

	vote := VoteRequest{
		PollID:   poll.Poll.ID.String(),
		OptionID: poll.Poll.Options[1].ID.String(),
	}

	rec := httptest.NewRecorder()
	s.HandleVote()(rec, authedRequest(http.MethodPost, "/poll/vote", vote, voter))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		Poll struct {
			IsVoted    bool `json:"isVoted"`
			TotalVotes int  `json:"totalVotes"`
			Results    []struct {
				Percentage int `json:"percentage"`
			} `json:"results"`
		} `json:"poll"`
	}
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.True(t, result.Poll.IsVoted)
	assert.Equal(t, 1, result.Poll.TotalVotes)
	assert.Len(t, result.Poll.Results, 2)

	rec = httptest.NewRecorder()
	s.HandleVote()(rec, authedRequest(http.MethodPost, "/poll/vote", vote, voter))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFeedMergesPollsAndOpinions(t *testing.T) {
	s, _ := newTestServer(t)
	creator := registerUser(t, s, "feed@example.com")
	createTestPoll(t, s, creator, 0)

	rec := httptest.NewRecorder()
	s.HandleOpinion()(rec, authedRequest(http.MethodPost, "/opinion", map[string]string{
		"text": "Hot take: both are fine",
	}, creator))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	s.HandleFeed()(rec, authedRequest(http.MethodGet, "/feed", nil, creator))
	assert.Equal(t, http.StatusOK, rec.Code)

	var items []models.FeedItem
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&items))
	assert.Len(t, items, 2)

	kinds := map[models.FeedItemKind]int{}
	for _, item := range items {
		kinds[item.Kind]++
		if item.Kind == models.FeedItemPoll {
			assert.NotNil(t, item.Poll)
			assert.Nil(t, item.Opinion)
		} else {
			assert.NotNil(t, item.Opinion)
			assert.Nil(t, item.Poll)
		}
	}
	assert.Equal(t, 1, kinds[models.FeedItemPoll])
	assert.Equal(t, 1, kinds[models.FeedItemOpinion])
}

func TestTipWebhookRecordsTip(t *testing.T) {
	s, checkout := newTestServer(t)
	creator := registerUser(t, s, "tipped@example.com")
	tipper := registerUser(t, s, "tipper@example.com")
	poll := createTestPoll(t, s, creator, 0)

	checkout.event = &payments.CompletedEvent{
		SessionID:   "cs_test_done",
		Purpose:     payments.PurposeTip,
		TargetID:    poll.Poll.ID,
		TargetKind:  "poll",
		PayerID:     tipper,
		AmountCents: 500,
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewBufferString("{}"))
	req.Header.Set("Stripe-Signature", "test-signature")
	s.HandlePaymentWebhook()(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	s.HandlePoll()(rec, authedRequest(http.MethodGet, "/poll?id="+poll.Poll.ID.String(), nil, uuid.Nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var view models.PollView
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, 1, view.TipCount)
}

func TestTipWebhookReplayIsIdempotent(t *testing.T) {
	s, checkout := newTestServer(t)
	creator := registerUser(t, s, "replayed@example.com")
	tipper := registerUser(t, s, "generous@example.com")
	poll := createTestPoll(t, s, creator, 0)

	checkout.event = &payments.CompletedEvent{
		SessionID:   "cs_test_redelivered",
		Purpose:     payments.PurposeTip,
		TargetID:    poll.Poll.ID,
		TargetKind:  "poll",
		PayerID:     tipper,
		AmountCents: 500,
	}

	// Providers redeliver webhooks; both deliveries must ack with 200 but
	// only the first one may count.
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewBufferString("{}"))
		req.Header.Set("Stripe-Signature", "test-signature")
		s.HandlePaymentWebhook()(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := httptest.NewRecorder()
	s.HandlePoll()(rec, authedRequest(http.MethodGet, "/poll?id="+poll.Poll.ID.String(), nil, uuid.Nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var view models.PollView
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, 1, view.TipCount)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewBufferString("{}"))
	req.Header.Set("Stripe-Signature", "forged")
	s.HandlePaymentWebhook()(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.HandleHealth()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
}
