package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"teamtodo-backend/internal/bus"
	"teamtodo-backend/internal/cache"
	"teamtodo-backend/internal/config"
	"teamtodo-backend/internal/handlers"
	"teamtodo-backend/internal/middleware"
	"teamtodo-backend/internal/services"
	"teamtodo-backend/internal/storage"
	"teamtodo-backend/internal/webhooks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.WebhookSigningSecret == "" {
		log.Println("WARN WEBHOOK_SIGNING_SECRET is not set; webhook endpoint will reject all deliveries")
	}

	// Database connection (with retries)
	var db *sqlx.DB
	for i := 0; i < 10; i++ {
		db, err = sqlx.Connect("postgres", cfg.DSN())
		if err == nil {
			break
		}
		log.Printf("DB connection attempt %d failed: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	store := storage.NewStorage(db)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	// Redis cache (event dedup, rate limits, active-org selection)
	redisClient, err := cache.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// NATS sync-notification bus
	busClient, err := bus.Connect(cfg.NatsURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer busClient.Close()

	// Identity-provider gateway
	identity := services.NewIdentityClient(cfg.IdentityAPIURL, cfg.IdentityAPIKey)

	// HTTP handlers
	h := handlers.New(store, identity, redisClient)
	wh := webhooks.NewHandler(cfg.WebhookSigningSecret, store, identity, redisClient, busClient)

	// Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.RateLimitWebhook(redisClient)).
			Post("/webhooks/clerk", wh.HandleEvent)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitAPI(redisClient))
			h.RegisterRoutes(r)
		})
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("Server starting on %s", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}
