package main

import (
	"context"
	"flag"
	"log"
	"time"

	"pollitago/simulator"
)

func main() {
	engineURL := flag.String("engine", "http://localhost:8080", "base URL of the running engine")
	numUsers := flag.Int("users", 25, "number of simulated users")
	duration := flag.Duration("duration", 10*time.Minute, "how long to run")
	flag.Parse()

	config := simulator.SimConfig{
		NumUsers:         *numUsers,
		SimulationTime:   *duration,
		PollFrequency:    40.0,
		OpinionFrequency: 25.0,
		VoteFrequency:    200.0,
		CommentFrequency: 60.0,
		LikeFrequency:    150.0,
		PledgeChance:     0.15,
		DisconnectRate:   0.01,
		ReconnectRate:    0.05,
		ZipfS:            1.07,
		EngineURL:        *engineURL,
	}

	log.Printf("Starting simulation with configuration:")
	log.Printf("- Engine URL: %s", config.EngineURL)
	log.Printf("- Number of users: %d", config.NumUsers)
	log.Printf("- Simulation time: %v", config.SimulationTime)
	log.Printf("- Poll frequency: %.2f polls/user/hour", config.PollFrequency)
	log.Printf("- Vote frequency: %.2f votes/user/hour", config.VoteFrequency)
	log.Printf("- Pledge chance: %.1f%%", config.PledgeChance*100)
	log.Printf("- Zipf parameter: %.2f", config.ZipfS)

	sim := simulator.NewEnhancedSimulator(config)
	ctx, cancel := context.WithTimeout(context.Background(), config.SimulationTime)
	defer cancel()

	if err := sim.Run(ctx); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	metrics := sim.GetMetrics()
	log.Printf("\nSimulation completed. Final metrics:")
	log.Printf("- Total users: %d", metrics.TotalUsers)
	log.Printf("- Total polls: %d", metrics.TotalPolls)
	log.Printf("- Total opinions: %d", metrics.TotalOpinions)
	log.Printf("- Total votes: %d", metrics.TotalVotes)
	log.Printf("- Total likes: %d", metrics.TotalLikes)
	log.Printf("- Total comments: %d", metrics.TotalComments)
	log.Printf("- Requests/sec: %.2f", metrics.RequestsPerSecond)
	log.Printf("- Error count: %d", metrics.ErrorCount)
}
