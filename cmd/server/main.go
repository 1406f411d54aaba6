package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-backend/internal/config"
	"chat-backend/internal/database"
	"chat-backend/internal/handlers"
	"chat-backend/internal/middleware"
	"chat-backend/internal/repository"
	"chat-backend/internal/router"
	"chat-backend/internal/services"
	"chat-backend/internal/websocket"
	"chat-backend/migrations"
)

func main() {
	log.Println("🚀 Starting Chat Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("✗ Invalid configuration: %v", err)
	}
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Open the Persistence Store ────
	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("✗ Storage initialization failed: %v", err)
	}
	defer closeStore()
	log.Printf("✓ Storage ready (%s)", cfg.StorageType)

	// ──── Step 3: Initialize Redis Clients (optional) ────
	var pubClient, subClient *redis.Client
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClients.Close()
		pubClient, subClient = redisClients.Publisher, redisClients.Subscriber
		log.Println("✓ Redis connected")
	} else {
		log.Println("✓ Redis not configured, events broadcast in-process")
	}

	// ──── Step 4: Initialize Completion Provider ────
	provider, err := services.NewCompletionProvider(context.Background(), cfg.ProviderOptions())
	if err != nil {
		log.Fatalf("✗ Completion provider initialization failed: %v", err)
	}
	if closer, ok := provider.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	completionService := services.NewCompletionService(provider, cfg.CompletionTimeout, cfg.CompletionConcurrency)
	if completionService.Configured() {
		log.Printf("✓ Completion provider initialized (%s)", provider.Name())
	} else {
		log.Printf("✓ No %s API key configured, using fallback replies", cfg.CompletionProvider)
	}

	// ──── Step 5: Start WebSocket Hub ────
	wsHub := websocket.NewHub(pubClient, subClient, cfg.FrontendURL)
	if err := wsHub.Start(); err != nil {
		log.Fatalf("✗ WebSocket hub failed to start: %v", err)
	}
	log.Println("✓ WebSocket hub started")

	// ──── Initialize Services & Handlers ────
	chatService := services.NewChatService(store, completionService, wsHub)
	conversationHandler := handlers.NewConversationHandler(chatService)

	// ──── Step 6: Start HTTP Server ────
	var messageLimiter *middleware.RateLimiter
	if cfg.MessageRateLimit > 0 {
		messageLimiter = middleware.NewRateLimiter(cfg.MessageRateLimit, time.Minute)
		limiterCtx, stopLimiter := context.WithCancel(context.Background())
		defer stopLimiter()
		go messageLimiter.Run(limiterCtx)
	}

	r := router.New(conversationHandler, wsHub.HandleWebSocket, messageLimiter, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg.CompletionTimeout),
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		wsHub.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Chat Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

// writeTimeout leaves room for a full completion call. An unbounded
// completion timeout disables the write timeout.
func writeTimeout(completionTimeout time.Duration) time.Duration {
	if completionTimeout <= 0 {
		return 0
	}
	return completionTimeout + 15*time.Second
}

// openStore builds the Store selected by STORAGE_TYPE and returns a func that
// releases its resources.
func openStore(cfg *config.Config) (repository.Store, func(), error) {
	switch cfg.StorageType {
	case repository.StoragePostgres:
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(pool, migrations.FS); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database migration failed: %w", err)
		}
		return repository.NewPostgresStore(pool), pool.Close, nil

	case repository.StorageSQLite:
		db, err := database.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteStore(db), func() { db.Close() }, nil

	default:
		return repository.NewMemoryStore(), func() {}, nil
	}
}
