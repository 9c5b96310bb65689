package main

import (
	stdctx "context"
	"fmt"
	"log"
	"net/http"

	"pollitago/internal/config"
	"pollitago/internal/database"
	"pollitago/internal/engine"
	"pollitago/internal/handlers"
	"pollitago/internal/middleware"
	"pollitago/internal/payments"
	"pollitago/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	middleware.SetJWTSecret(cfg.Auth.JWTSecret)

	db, err := openDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close(stdctx.Background())

	var checkout payments.CheckoutProvider
	if cfg.Checkout.SecretKey != "" {
		checkout = payments.NewStripeProvider(
			cfg.Checkout.SecretKey,
			cfg.Checkout.WebhookSecret,
			cfg.Checkout.SuccessURL,
			cfg.Checkout.CancelURL,
		)
	} else {
		log.Printf("STRIPE_SECRET_KEY not set, payments disabled")
	}

	metrics := utils.NewMetricsCollector()
	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, metrics, db)

	server := handlers.NewServer(system, eng, metrics, db, checkout)
	server.Currency = cfg.Checkout.Currency

	corsConfig := middleware.DefaultCORSConfig(cfg.AllowedOrigins)
	mux := http.NewServeMux()

	route := func(path string, handler http.HandlerFunc) {
		mux.HandleFunc(path, middleware.ApplyCORS(middleware.ApplyJWTMiddleware(handler, path), corsConfig))
	}

	route("/health", server.HandleHealth())
	route("/user/register", server.HandleUserRegistration())
	route("/user/login", server.HandleUserLogin())
	route("/user/logout", server.HandleUserLogout())
	route("/user/profile", server.HandleUserProfile())
	route("/poll", server.HandlePoll())
	route("/poll/vote", server.HandleVote())
	route("/poll/pledge", server.HandleDecidePledge())
	route("/opinion", server.HandleOpinion())
	route("/like", server.HandleLike())
	route("/comment", server.HandleComment())
	route("/feed", server.HandleFeed())
	route("/payments/tip", server.HandleCreateTip())
	route("/payments/webhook", server.HandlePaymentWebhook())

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on %s (db=%s)", serverAddr, cfg.Database.Type)
	if err := http.ListenAndServe(serverAddr, mux); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func openDatabase(cfg *config.DatabaseConfig) (database.DBAdapter, error) {
	switch cfg.Type {
	case "mongo":
		db, err := database.NewMongoDB(cfg.URI, cfg.Name)
		if err != nil {
			return nil, err
		}
		return db, nil

	case "postgres":
		db, err := database.NewPostgresDB(cfg.URI)
		if err != nil {
			return nil, err
		}
		if err := db.InitializeTables(stdctx.Background()); err != nil {
			return nil, err
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}
