package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"chat-backend/internal/handlers"
	"chat-backend/internal/middleware"
)

func New(
	conversationHandler *handlers.ConversationHandler,
	wsHandler http.HandlerFunc,
	messageLimiter *middleware.RateLimiter,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.EchoRequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(frontendURL))

	r.NotFound(middleware.NotFound)
	r.MethodNotAllowed(middleware.MethodNotAllowed)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Message sends call the completion provider; limit them per client
	limitMessages := func(next http.Handler) http.Handler { return next }
	if messageLimiter != nil {
		limitMessages = messageLimiter.Middleware
	}

	r.Route("/api", func(r chi.Router) {

		// ──── Conversation Routes ────
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Post("/", conversationHandler.Create)
			r.Get("/{id}", conversationHandler.Get)
			r.Patch("/{id}", conversationHandler.Update)
			r.Delete("/{id}", conversationHandler.Delete)
			r.Get("/{id}/messages", conversationHandler.ListMessages)
			r.With(limitMessages).Post("/{id}/messages", conversationHandler.SendMessage)
		})

		// First message of a conversation that does not exist yet
		r.With(limitMessages).Post("/messages", conversationHandler.StartConversation)

		// ──── WebSocket ────
		r.Get("/ws", wsHandler)
	})

	return r
}
