package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"geminichat-backend/internal/handlers"
	"geminichat-backend/internal/middleware"
	"geminichat-backend/internal/websocket"
)

func New(
	sessionAuth *middleware.SessionAuth,
	chatHandler *handlers.ChatHandler,
	wsHub *websocket.Hub,
	frontendURL string,
	messageLimit int,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Session creation rate limiter (10 req/min per IP)
	sessionLimiter := middleware.NewRateLimiter(10, time.Minute)
	messageLimiter := middleware.NewRateLimiter(messageLimit, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Chat Status (public) ────
		r.Get("/chat/status", chatHandler.Status)

		// ──── Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.With(sessionLimiter.Middleware).Post("/", chatHandler.CreateSession)

			r.Route("/current", func(r chi.Router) {
				r.Use(sessionAuth.Middleware)
				r.Get("/", chatHandler.GetTranscript)
				r.Delete("/", chatHandler.EndSession)
				r.Get("/history", chatHandler.GetHistory)
				r.With(messageLimiter.Middleware).Post("/messages", chatHandler.SendMessage)
			})
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
