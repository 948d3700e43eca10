package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/axoncore/axoncore/internal/database"
	"github.com/axoncore/axoncore/internal/events"
	mw "github.com/axoncore/axoncore/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Sign-in
	GoogleSignIn http.HandlerFunc
	Refresh      http.HandlerFunc
	Logout       http.HandlerFunc

	// Account
	Me http.HandlerFunc

	// Assistant directory
	Models              http.HandlerFunc
	CreateAssistants    http.HandlerFunc
	ListAssistants      http.HandlerFunc
	GetAssistant        http.HandlerFunc
	UpdateAssistant     http.HandlerFunc
	DeleteAssistant     http.HandlerFunc
	OwnershipMiddleware func(http.Handler) http.Handler

	// Conversation relay
	Chat           http.HandlerFunc
	ListMessages   http.HandlerFunc
	ClearMessages  http.HandlerFunc
	RecentMessages http.HandlerFunc

	// Subscriptions
	CreateSubscription http.HandlerFunc
	VerifySubscription http.HandlerFunc
	CancelSubscription http.HandlerFunc
	SubscriptionStatus http.HandlerFunc

	// Usage
	EstimateUsage   http.HandlerFunc
	ListUsageEvents http.HandlerFunc

	// Internal ledger surface
	LookupAccount    http.HandlerFunc
	GetAccount       http.HandlerFunc
	CreateAccount    http.HandlerFunc
	DebitAccount     http.HandlerFunc
	CancelAccountSub http.HandlerFunc

	AuthMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds the router's infrastructure and per-route middleware.
// Nil limiters and a nil NATS client are allowed.
type RouterConfig struct {
	CORSAllowedOrigins []string
	InternalAPIKey     string
	AuthRateLimiter    func(http.Handler) http.Handler
	ChatRateLimiter    func(http.Handler) http.Handler

	Pool  *pgxpool.Pool
	Redis *redis.Client
	NATS  *events.Client
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(mw.CORS(cfg.CORSAllowedOrigins))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})
	r.Get("/health/ready", readiness(cfg))
	r.Get("/health", readiness(cfg))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			use(r, cfg.AuthRateLimiter)
			r.Post("/google", h.GoogleSignIn)
			r.Post("/refresh", h.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware)
				r.Post("/logout", h.Logout)
			})
		})

		r.Get("/models", h.Models)
		r.Post("/usage/estimate", h.EstimateUsage)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/me", h.Me)
			r.Get("/messages/recent", h.RecentMessages)
			r.Get("/usage/events", h.ListUsageEvents)

			r.Route("/assistants", func(r chi.Router) {
				r.Post("/", h.CreateAssistants)
				r.Get("/", h.ListAssistants)

				r.Route("/{assistantID}", func(r chi.Router) {
					r.Use(h.OwnershipMiddleware)
					r.Get("/", h.GetAssistant)
					r.Patch("/", h.UpdateAssistant)
					r.Delete("/", h.DeleteAssistant)

					r.With(optional(cfg.ChatRateLimiter)).Post("/chat", h.Chat)
					r.Get("/messages", h.ListMessages)
					r.Delete("/messages", h.ClearMessages)
				})
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/", h.CreateSubscription)
				r.Post("/verify", h.VerifySubscription)
				r.Post("/cancel", h.CancelSubscription)
				r.Get("/status", h.SubscriptionStatus)
			})
		})
	})

	r.Route("/internal/accounts", func(r chi.Router) {
		r.Use(mw.APIKey(cfg.InternalAPIKey))
		r.Get("/", h.LookupAccount)
		r.Post("/", h.CreateAccount)
		r.Get("/{accountID}", h.GetAccount)
		r.Patch("/{accountID}/tokens", h.DebitAccount)
		r.Patch("/{accountID}/cancel-subscription", h.CancelAccountSub)
	})

	return r
}

func use(r chi.Router, m func(http.Handler) http.Handler) {
	if m != nil {
		r.Use(m)
	}
}

func optional(m func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return m
}

func readiness(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"redis":    "healthy",
			"nats":     "healthy",
		}
		status := http.StatusOK
		degrade := func(component, state string) {
			health[component] = state
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if cfg.Pool == nil {
			degrade("database", "not configured")
		} else if err := database.HealthCheck(ctx, cfg.Pool); err != nil {
			degrade("database", "unhealthy")
		}

		if cfg.Redis == nil {
			degrade("redis", "not configured")
		} else if err := cfg.Redis.Ping(ctx).Err(); err != nil {
			degrade("redis", "unhealthy")
		}

		// Events are optional: a missing client is reported, not failed.
		switch {
		case cfg.NATS == nil:
			health["nats"] = "not configured"
		case !cfg.NATS.Healthy():
			degrade("nats", "unhealthy")
		}

		JSON(w, status, health)
	}
}
