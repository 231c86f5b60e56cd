package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/nse-market-bot/app"
	"github.com/upb/nse-market-bot/handlers"
	appmw "github.com/upb/nse-market-bot/middleware"
	"github.com/upb/nse-market-bot/utils"
)

const defaultRequestTimeout = 120 * time.Second

var defaultAllowedOrigins = []string{"http://localhost:*", "https://*"}

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	timeout := defaultRequestTimeout
	origins := defaultAllowedOrigins
	if deps.Config != nil {
		if deps.Config.Server.WriteTimeout > 0 {
			timeout = deps.Config.Server.WriteTimeout
		}
		if len(deps.Config.CORS.AllowedOrigins) > 0 {
			origins = deps.Config.CORS.AllowedOrigins
		}
	}

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(appmw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmw.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Vercel-AI-Data-Stream"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	if deps.Metrics != nil && deps.Config != nil && deps.Config.Observability.MetricsEnabled {
		r.Handle(deps.Config.Observability.MetricsPath, promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	// Chat endpoint consumed by the web UI
	var chatService handlers.ChatService
	if deps.Chat != nil {
		chatService = deps.Chat
	}
	r.Post("/api/chat", handlers.NewChatHandler(chatService, deps.Logger).HandleChat)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", handlers.StatusHandler(deps))

		if deps.Retrieval != nil {
			maxCount := 0
			if deps.Config != nil {
				maxCount = deps.Config.Retrieval.MaxCount
			}
			r.Get("/search", handlers.NewSearchHandler(deps.Retrieval, maxCount, deps.Logger).HandleSearch)
		} else {
			r.Get("/search", func(w http.ResponseWriter, r *http.Request) {
				_ = utils.WriteServiceUnavailable(w, "Search is not configured")
			})
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}
