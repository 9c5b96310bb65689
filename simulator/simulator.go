package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SimConfig tunes the synthetic load.
type SimConfig struct {
	NumUsers         int
	SimulationTime   time.Duration
	PollFrequency    float64 // polls per user per hour
	OpinionFrequency float64
	VoteFrequency    float64
	CommentFrequency float64
	LikeFrequency    float64
	PledgeChance     float64 // fraction of polls created with a pledge
	DisconnectRate   float64
	ReconnectRate    float64
	ZipfS            float64
	EngineURL        string
}

// SimulationStats aggregates request outcomes across all workers.
type SimulationStats struct {
	mu               sync.RWMutex
	StartTime        time.Time
	TotalRequests    int64
	SuccessRequests  int64
	FailedRequests   int64
	AverageLatency   time.Duration
	ActiveUsers      int
	TotalPolls       int
	TotalOpinions    int
	TotalVotes       int
	TotalComments    int
	TotalLikes       int
	RequestLatencies []time.Duration
}

// SimulatedUser carries the session state for one synthetic account.
type SimulatedUser struct {
	ID          uuid.UUID
	Username    string
	Email       string
	Token       string
	IsConnected bool
	VotedPolls  map[uuid.UUID]bool
	Liked       map[uuid.UUID]bool
}

type simulatedPoll struct {
	ID      uuid.UUID
	Options []uuid.UUID
}

// EnhancedSimulator drives configurable load against a running engine.
type EnhancedSimulator struct {
	config   SimConfig
	stats    *SimulationStats
	users    []*SimulatedUser
	polls    []*simulatedPoll
	opinions []uuid.UUID
	client   *http.Client
	mu       sync.RWMutex
}

func NewEnhancedSimulator(config SimConfig) *EnhancedSimulator {
	return &EnhancedSimulator{
		config: config,
		stats: &SimulationStats{
			StartTime:        time.Now(),
			RequestLatencies: make([]time.Duration, 0),
		},
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *EnhancedSimulator) Run(ctx context.Context) error {
	log.Printf("Starting simulation against %s...", s.config.EngineURL)

	if err := s.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %v", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.SimulateActivities(ctx); err != nil {
			log.Printf("Activities simulation error: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.simulateConnectivity(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.collectMetrics(ctx)
	}()

	wg.Wait()
	return nil
}

func (s *EnhancedSimulator) initialize(ctx context.Context) error {
	log.Printf("Phase 1: Creating %d users...", s.config.NumUsers)
	if err := s.createInitialUsers(ctx); err != nil {
		return fmt.Errorf("failed to create users: %v", err)
	}
	log.Printf("Initialization completed with %d users", len(s.users))
	return nil
}

func (s *EnhancedSimulator) createInitialUsers(ctx context.Context) error {
	const numWorkers = 5
	userJobs := make(chan int, numWorkers)
	results := make(chan *SimulatedUser, numWorkers)

	rateLimiter := time.NewTicker(100 * time.Millisecond)
	defer rateLimiter.Stop()

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for userNum := range userJobs {
				<-rateLimiter.C

				user := &SimulatedUser{
					Username:    fmt.Sprintf("user_%d", userNum),
					Email:       fmt.Sprintf("user_%d@test.com", userNum),
					IsConnected: true,
					VotedPolls:  make(map[uuid.UUID]bool),
					Liked:       make(map[uuid.UUID]bool),
				}

				var err error
				for retries := 0; retries < 3; retries++ {
					if err = s.registerAndLogin(ctx, user); err == nil {
						results <- user
						break
					}
					backoff := time.Duration(1<<retries) * time.Second
					log.Printf("Worker %d: Retry %d for user %s after %v",
						workerID, retries+1, user.Username, backoff)
					time.Sleep(backoff)
				}
				if err != nil {
					log.Printf("Worker %d: Giving up on user %s: %v", workerID, user.Username, err)
				}
			}
		}(i)
	}

	go func() {
		for i := 0; i < s.config.NumUsers; i++ {
			userJobs <- i
		}
		close(userJobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for user := range results {
		s.mu.Lock()
		s.users = append(s.users, user)
		s.mu.Unlock()
	}
	return nil
}

func (s *EnhancedSimulator) registerAndLogin(ctx context.Context, user *SimulatedUser) error {
	resp, err := s.makeRequest("POST", "/user/register", "", map[string]interface{}{
		"username": user.Username,
		"email":    user.Email,
		"password": "testpass123",
	})
	if err != nil {
		return fmt.Errorf("failed to register: %v", err)
	}

	var registered struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp, &registered); err != nil {
		return fmt.Errorf("failed to parse registration response: %v", err)
	}
	id, err := uuid.Parse(registered.ID)
	if err != nil {
		return fmt.Errorf("invalid user ID returned: %v", err)
	}
	user.ID = id

	resp, err = s.makeRequest("POST", "/user/login", "", map[string]interface{}{
		"email":    user.Email,
		"password": "testpass123",
	})
	if err != nil {
		return fmt.Errorf("failed to login: %v", err)
	}

	var login struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	if err := json.Unmarshal(resp, &login); err != nil || !login.Success {
		return fmt.Errorf("login rejected for %s", user.Email)
	}
	user.Token = login.Token
	return nil
}

// makeRequest performs one HTTP request, passing the bearer token when set,
// and feeds the latency into the stats.
func (s *EnhancedSimulator) makeRequest(method, endpoint, token string, data interface{}) ([]byte, error) {
	var body []byte
	var err error
	if data != nil {
		body, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequest(method, s.config.EngineURL+endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	s.recordRequestMetrics(start, err)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, payload)
	}
	return payload, nil
}

func (s *EnhancedSimulator) recordRequestMetrics(start time.Time, err error) {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	latency := time.Since(start)
	s.stats.TotalRequests++
	s.stats.RequestLatencies = append(s.stats.RequestLatencies, latency)

	if err != nil {
		s.stats.FailedRequests++
	} else {
		s.stats.SuccessRequests++
	}

	totalLatency := s.stats.AverageLatency * time.Duration(s.stats.TotalRequests-1)
	s.stats.AverageLatency = (totalLatency + latency) / time.Duration(s.stats.TotalRequests)
}

func (s *EnhancedSimulator) simulateConnectivity(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			for _, user := range s.users {
				if user.IsConnected {
					if rand.Float64() < s.config.DisconnectRate {
						user.IsConnected = false
						s.makeRequest("POST", "/user/logout", user.Token, nil)
					}
				} else if rand.Float64() < s.config.ReconnectRate {
					user.IsConnected = true
				}
			}
			s.mu.Unlock()
		}
	}
}

// randomPoll picks a poll biased toward early (popular) entries via Zipf.
func (s *EnhancedSimulator) randomPoll() *simulatedPoll {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.polls) == 0 {
		return nil
	}
	zipf := rand.NewZipf(rand.New(rand.NewSource(time.Now().UnixNano())),
		s.config.ZipfS, 1, uint64(len(s.polls)-1))
	return s.polls[int(zipf.Uint64())]
}

func (s *EnhancedSimulator) collectMetrics(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.stats.mu.RLock()
			elapsed := time.Since(s.stats.StartTime)
			requestRate := float64(s.stats.TotalRequests) / elapsed.Seconds()
			successRate := 0.0
			if s.stats.TotalRequests > 0 {
				successRate = float64(s.stats.SuccessRequests) / float64(s.stats.TotalRequests) * 100
			}

			activeUsers := 0
			s.mu.RLock()
			for _, user := range s.users {
				if user.IsConnected {
					activeUsers++
				}
			}
			s.mu.RUnlock()

			log.Printf("\nSimulation Metrics (%.1f seconds elapsed):", elapsed.Seconds())
			log.Printf("- Request Rate: %.2f req/sec", requestRate)
			log.Printf("- Success Rate: %.1f%%", successRate)
			log.Printf("- Average Latency: %v", s.stats.AverageLatency)
			log.Printf("- Active Users: %d/%d", activeUsers, len(s.users))
			log.Printf("- Total Polls: %d / Opinions: %d", s.stats.TotalPolls, s.stats.TotalOpinions)
			log.Printf("- Total Votes: %d / Likes: %d / Comments: %d",
				s.stats.TotalVotes, s.stats.TotalLikes, s.stats.TotalComments)
			log.Printf("- Failed Requests: %d", s.stats.FailedRequests)
			s.stats.mu.RUnlock()
		}
	}
}

// SimulationMetrics is the final summary returned after a run.
type SimulationMetrics struct {
	TotalUsers        int
	ActiveUsers       int
	TotalPolls        int
	TotalOpinions     int
	TotalVotes        int
	TotalComments     int
	TotalLikes        int
	AverageLatency    time.Duration
	ErrorCount        int
	RequestsPerSecond float64
}

// GetMetrics returns the current simulation metrics
func (s *EnhancedSimulator) GetMetrics() SimulationMetrics {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	elapsed := time.Since(s.stats.StartTime)
	return SimulationMetrics{
		TotalUsers:        len(s.users),
		ActiveUsers:       s.stats.ActiveUsers,
		TotalPolls:        s.stats.TotalPolls,
		TotalOpinions:     s.stats.TotalOpinions,
		TotalVotes:        s.stats.TotalVotes,
		TotalComments:     s.stats.TotalComments,
		TotalLikes:        s.stats.TotalLikes,
		AverageLatency:    s.stats.AverageLatency,
		ErrorCount:        int(s.stats.FailedRequests),
		RequestsPerSecond: float64(s.stats.TotalRequests) / elapsed.Seconds(),
	}
}
