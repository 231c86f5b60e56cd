package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/upb/nse-market-bot/app"
	"github.com/upb/nse-market-bot/config"
	"go.uber.org/zap"
)

// Version is reported by the status endpoint
var Version = "0.1.0"

// HealthCheck returns a simple health check handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// ReadinessCheck reports whether the passage store can serve searches.
// A cold embedding model is reported but does not fail readiness because it
// loads on first use.
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true

		switch {
		case deps.Config != nil && deps.Config.Store.Backend == config.StoreBackendMemory:
			checks["database"] = "disabled"
		case deps.DB == nil:
			ready = false
			checks["database"] = "not_initialized"
		default:
			if err := deps.DB.PingContext(ctx); err != nil {
				ready = false
				checks["database"] = "unhealthy"
				deps.Logger.Error("database health check failed", zap.Error(err))
			} else {
				checks["database"] = "healthy"
			}
		}

		switch {
		case deps.Embedder == nil:
			ready = false
			checks["embedding"] = "not_initialized"
		case deps.Embedder.Ready():
			checks["embedding"] = "ready"
		default:
			checks["embedding"] = "loading"
		}

		if deps.ProviderRegistry == nil || deps.ProviderRegistry.Count() == 0 {
			checks["providers"] = "none_configured"
		} else {
			checks["providers"] = "configured"
		}

		if deps.Chat == nil {
			checks["chat"] = "disabled"
		} else {
			checks["chat"] = "enabled"
		}

		response := map[string]interface{}{
			"status": "ready",
			"checks": checks,
		}

		w.Header().Set("Content-Type", "application/json")
		if ready {
			w.WriteHeader(http.StatusOK)
		} else {
			response["status"] = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(response)
	}
}

// StatusHandler returns application status information
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"version":     Version,
			"environment": deps.Config.Environment,
			"providers":   []string{},
			"models":      []string{},
			"store":       deps.Config.Store.Backend,
		}
		if deps.ProviderRegistry != nil {
			response["providers"] = deps.ProviderRegistry.List()
			response["models"] = deps.ProviderRegistry.ListModels()
		}
		if deps.Embedder != nil {
			response["embedding_model"] = deps.Embedder.Model()
		}
		if deps.Chat != nil {
			response["chat_model"] = deps.Chat.Model()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
