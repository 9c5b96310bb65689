package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

var pollQuestions = []string{
	"Which phone should I get?",
	"Best pizza topping?",
	"Where should I travel next?",
	"Which laptop for programming?",
	"What should I name my dog?",
	"Best show to binge this weekend?",
	"Which sneakers look better?",
	"What should I cook tonight?",
}

var opinionTakes = []string{
	"Pineapple belongs on pizza and I will not be taking questions.",
	"Morning workouts are overrated.",
	"The best camera is the one you have with you.",
	"Paper books beat e-readers every time.",
	"Cold brew is just marketing.",
}

func (s *EnhancedSimulator) SimulateActivities(ctx context.Context) error {
	log.Printf("Starting activities simulation...")

	// Votes, likes and comments wait until there is content to engage with.
	contentAvailable := make(chan struct{})

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.simulateContentCreation(ctx, contentAvailable)
	}()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.stats.mu.RLock()
				ready := s.stats.TotalPolls >= 5
				s.stats.mu.RUnlock()
				if ready {
					close(contentAvailable)
					return
				}
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-contentAvailable:
			s.simulateEngagement(ctx)
		}
	}()

	wg.Wait()
	return nil
}

func (s *EnhancedSimulator) simulateContentCreation(ctx context.Context, contentAvailable chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			user := s.randomConnectedUser()
			if user == nil {
				continue
			}

			if rand.Float64() < s.config.PollFrequency/7200.0 {
				if err := s.createPoll(user); err != nil {
					log.Printf("Failed to create poll as %s: %v", user.Username, err)
				}
			}
			if rand.Float64() < s.config.OpinionFrequency/7200.0 {
				if err := s.createOpinion(user); err != nil {
					log.Printf("Failed to create opinion as %s: %v", user.Username, err)
				}
			}
		}
	}
}

func (s *EnhancedSimulator) simulateEngagement(ctx context.Context) {
	log.Printf("Starting engagement after content available...")
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			user := s.randomConnectedUser()
			if user == nil {
				continue
			}

			if rand.Float64() < s.config.VoteFrequency/1800.0 {
				s.castVote(user)
			}
			if rand.Float64() < s.config.LikeFrequency/1800.0 {
				s.likeSomething(user)
			}
			if rand.Float64() < s.config.CommentFrequency/3600.0 {
				s.postComment(user)
			}
		}
	}
}

func (s *EnhancedSimulator) randomConnectedUser() *SimulatedUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.users) == 0 {
		return nil
	}
	for attempts := 0; attempts < 5; attempts++ {
		user := s.users[rand.Intn(len(s.users))]
		if user.IsConnected {
			return user
		}
	}
	return nil
}

func (s *EnhancedSimulator) createPoll(user *SimulatedUser) error {
	numOptions := 2 + rand.Intn(3)
	options := make([]map[string]string, numOptions)
	for i := range options {
		options[i] = map[string]string{"text": fmt.Sprintf("Option %c", 'A'+i)}
	}

	pledge := 0.0
	if rand.Float64() < s.config.PledgeChance {
		pledge = float64(5+rand.Intn(20)) + 0.99
	}

	resp, err := s.makeRequest("POST", "/poll", user.Token, map[string]interface{}{
		"question":     pollQuestions[rand.Intn(len(pollQuestions))],
		"options":      options,
		"deadline":     time.Now().Add(time.Duration(1+rand.Intn(48)) * time.Hour),
		"pledgeAmount": pledge,
	})
	if err != nil {
		return err
	}

	var created struct {
		Poll struct {
			ID      string `json:"id"`
			Options []struct {
				ID string `json:"id"`
			} `json:"options"`
		} `json:"poll"`
	}
	if err := json.Unmarshal(resp, &created); err != nil {
		return err
	}
	pollID, err := uuid.Parse(created.Poll.ID)
	if err != nil {
		return err
	}

	poll := &simulatedPoll{ID: pollID}
	for _, opt := range created.Poll.Options {
		if id, err := uuid.Parse(opt.ID); err == nil {
			poll.Options = append(poll.Options, id)
		}
	}

	s.mu.Lock()
	s.polls = append(s.polls, poll)
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.TotalPolls++
	s.stats.mu.Unlock()
	return nil
}

func (s *EnhancedSimulator) createOpinion(user *SimulatedUser) error {
	resp, err := s.makeRequest("POST", "/opinion", user.Token, map[string]interface{}{
		"text": opinionTakes[rand.Intn(len(opinionTakes))],
	})
	if err != nil {
		return err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp, &created); err != nil {
		return err
	}
	if id, err := uuid.Parse(created.ID); err == nil {
		s.mu.Lock()
		s.opinions = append(s.opinions, id)
		s.mu.Unlock()
	}

	s.stats.mu.Lock()
	s.stats.TotalOpinions++
	s.stats.mu.Unlock()
	return nil
}

func (s *EnhancedSimulator) castVote(user *SimulatedUser) {
	poll := s.randomPoll()
	if poll == nil || len(poll.Options) == 0 || user.VotedPolls[poll.ID] {
		return
	}

	_, err := s.makeRequest("POST", "/poll/vote", user.Token, map[string]interface{}{
		"pollId":   poll.ID.String(),
		"optionId": poll.Options[rand.Intn(len(poll.Options))].String(),
	})
	if err != nil {
		// Duplicate and closed votes are expected under load.
		return
	}

	user.VotedPolls[poll.ID] = true
	s.stats.mu.Lock()
	s.stats.TotalVotes++
	s.stats.mu.Unlock()
}

func (s *EnhancedSimulator) likeSomething(user *SimulatedUser) {
	targetID := uuid.Nil
	kind := "poll"

	if rand.Float64() < 0.5 {
		if poll := s.randomPoll(); poll != nil {
			targetID = poll.ID
		}
	} else {
		s.mu.RLock()
		if len(s.opinions) > 0 {
			targetID = s.opinions[rand.Intn(len(s.opinions))]
			kind = "opinion"
		}
		s.mu.RUnlock()
	}
	if targetID == uuid.Nil || user.Liked[targetID] {
		return
	}

	_, err := s.makeRequest("POST", "/like", user.Token, map[string]interface{}{
		"targetId": targetID.String(),
		"kind":     kind,
		"liked":    true,
	})
	if err != nil {
		return
	}

	user.Liked[targetID] = true
	s.stats.mu.Lock()
	s.stats.TotalLikes++
	s.stats.mu.Unlock()
}

func (s *EnhancedSimulator) postComment(user *SimulatedUser) {
	poll := s.randomPoll()
	if poll == nil {
		return
	}

	_, err := s.makeRequest("POST", "/comment", user.Token, map[string]interface{}{
		"postId":  poll.ID.String(),
		"content": fmt.Sprintf("Thoughts from %s", user.Username),
	})
	if err != nil {
		return
	}

	s.stats.mu.Lock()
	s.stats.TotalComments++
	s.stats.mu.Unlock()
}
