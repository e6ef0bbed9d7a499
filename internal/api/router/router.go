package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/intake-ai-platform/internal/archive"
	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
	httpmiddleware "github.com/wolfman30/intake-ai-platform/internal/http/middleware"
	"github.com/wolfman30/intake-ai-platform/internal/knowledge"
	"github.com/wolfman30/intake-ai-platform/internal/unanswered"
	"github.com/wolfman30/intake-ai-platform/internal/webchat"
	"github.com/wolfman30/intake-ai-platform/pkg/logging"
)

const healthTimeout = 2 * time.Second

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	DialogueHandler    *dialogue.Handler
	WebChat            *webchat.Handler
	KnowledgeHandler   *knowledge.Handler
	UnansweredHandler  *unanswered.Handler
	ArchiveHandler     *archive.Handler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// ChatLimiter throttles the public chat surface per client IP. Nil disables limiting.
	ChatLimiter *httpmiddleware.RateLimiter

	// HealthCheck reports dependency health, e.g. a Redis ping. Nil means always healthy.
	HealthCheck func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthCheck))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Group(func(chat chi.Router) {
		if cfg.ChatLimiter != nil {
			chat.Use(httpmiddleware.RateLimit(cfg.ChatLimiter, httpmiddleware.ClientIP))
		}
		if cfg.DialogueHandler != nil {
			chat.With(middleware.AllowContentType("application/json")).Post("/chat", cfg.DialogueHandler.Chat)
		}
		if cfg.WebChat != nil {
			chat.Get("/chat/ws", cfg.WebChat.HandleWebSocket)
			chat.Get("/chat/history", cfg.WebChat.HandleHistory)
		}
	})

	// Admin routes are only mounted when a signing secret is configured.
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))

			if cfg.DialogueHandler != nil {
				sessionScope := httpmiddleware.RequireSessionScope(cfg.DialogueHandler.SessionOrg)
				admin.With(sessionScope).Get("/sessions/{sessionID}", cfg.DialogueHandler.Session)
				if cfg.ArchiveHandler != nil {
					admin.With(sessionScope).Post("/sessions/{sessionID}/archive", cfg.ArchiveHandler.ArchiveSession)
				}
			}
			if cfg.KnowledgeHandler != nil {
				admin.With(httpmiddleware.RequireOrgScope).Post("/knowledge/{orgID}", cfg.KnowledgeHandler.Ingest)
			}
			if cfg.UnansweredHandler != nil {
				admin.With(httpmiddleware.RequireOrgScope).Get("/unanswered/{orgID}", cfg.UnansweredHandler.List)
			}
		})
	}

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
