// Package api provides the REST handlers of the chat relay.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashureev/chatrelay/internal/store"
)

// ConnectionCounter reports live WebSocket connections.
type ConnectionCounter interface {
	Count() int
}

// Handler provides common handler utilities.
type Handler struct {
	repo   store.Repository
	conns  ConnectionCounter
	info   ServiceInfo
	logger *slog.Logger
}

// ServiceInfo is the non-secret runtime configuration exposed at /api/config.
type ServiceInfo struct {
	StoreDriver string `json:"store_driver"`
	LLMProvider string `json:"llm_provider"`
	LLMModel    string `json:"llm_model"`
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, conns ConnectionCounter, info ServiceInfo, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		repo:   repo,
		conns:  conns,
		info:   info,
		logger: logger,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
