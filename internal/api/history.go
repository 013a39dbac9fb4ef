package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const pingTimeout = 2 * time.Second

// RegisterRoutes registers the REST routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.GetHealth)
		r.Get("/messages", h.ListMessages)
		r.Get("/config", h.GetConfig)
	})
}

// GetHealth reports store reachability and the live connection count.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	connections := 0
	if h.conns != nil {
		connections = h.conns.Count()
	}

	if err := h.repo.Ping(ctx); err != nil {
		h.logger.Warn("Store health check failed", "error", err)
		JSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":      "degraded",
			"store":       "unreachable",
			"connections": connections,
		})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"store":       "ok",
		"connections": connections,
	})
}

// ListMessages returns the full conversation log in replay order.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to list messages", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	JSON(w, http.StatusOK, entries)
}

// GetConfig returns the public runtime configuration.
func (h *Handler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.info)
}
