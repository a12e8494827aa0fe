package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"nexasphere/internal/config"
	"nexasphere/internal/presence"
	"nexasphere/internal/security"
	"nexasphere/internal/service"
	storemongo "nexasphere/internal/store/mongo"
	"nexasphere/internal/ws"
)

// NewRouter constructs the main HTTP router and wires routes, services, and
// middleware.
func NewRouter(
	cfg *config.Config,
	log *slog.Logger,
	db *storemongo.Client,
	registry presence.Registry,
	hub *ws.Hub,
	tokens *security.TokenService,
) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Stores
	convStore := storemongo.NewConversationStore(db.DB)
	msgStore := storemongo.NewMessageStore(db.DB)
	userStore := storemongo.NewUserStore(db.DB)

	// Services
	msgSvc := service.NewMessagingService(convStore, msgStore, userStore, log)
	dispatcher := service.NewDispatcher(hub)
	fanout := service.NewFanout(userStore, hub, log)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Nexasphere backend server is running.",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokens))

			r.Route("/message", func(r chi.Router) {
				r.Post("/send/{receiverId}", handleSendMessage(msgSvc, dispatcher))
				r.Get("/getmessage/{otherId}", handleGetMessages(msgSvc))
				r.Patch("/read/{otherId}", handleMarkRead(msgSvc, dispatcher))
				r.Delete("/delete/{messageId}", handleDeleteMessage(msgSvc, dispatcher))
			})

			// called by the post/like/comment workflows
			r.Post("/notify/{targetId}", handleNotify(fanout))
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(hub, registry, tokens, log, cfg.CORSOrigins))

	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)
			log.Info("http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
