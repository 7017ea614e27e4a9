// Package api provides HTTP handlers for the coaching API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bridgetext/coach/internal/coach"
	"github.com/bridgetext/coach/internal/identity"
	"github.com/bridgetext/coach/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo                store.Repository
	frontendRedirectURL string
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, frontendURL string) *Handler {
	return &Handler{
		repo:                repo,
		frontendRedirectURL: frontendURL,
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
	JSON(w, status, map[string]interface{}{"error": message, "success": false})
}

// isDevelopment returns true if running in development mode.
func (h *Handler) isDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return h.frontendRedirectURL == "" ||
		strings.Contains(h.frontendRedirectURL, "localhost") ||
		strings.Contains(h.frontendRedirectURL, "127.0.0.1")
}

// ChatHandler handles conversation endpoints.
type ChatHandler struct {
	*Handler
	engine *coach.Engine
}

// NewChatHandler creates a new chat handler. A nil engine means AI features
// are disabled; chat requests then return 503 while history and clear still
// work against the store.
func NewChatHandler(base *Handler, engine *coach.Engine) *ChatHandler {
	return &ChatHandler{Handler: base, engine: engine}
}

// RegisterRoutes registers conversation routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Get("/history", h.History)
		r.Post("/clear", h.Clear)
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response     string   `json:"response"`
	QuickReplies []string `json:"quick_replies"`
	Success      bool     `json:"success"`
	LimitReached bool     `json:"limit_reached,omitempty"`
}

// Chat processes one user message and returns the coaching reply.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if h.engine == nil {
		Error(w, http.StatusServiceUnavailable, "AI features are disabled")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.engine.ProcessTurn(r.Context(), userID, req.Message)
	if err != nil {
		if errors.Is(err, coach.ErrEmptyMessage) {
			Error(w, http.StatusBadRequest, "message cannot be empty")
			return
		}
		slog.Error("Chat turn failed", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	// quick_replies is always an array, never null.
	quickReplies := reply.QuickReplies
	if quickReplies == nil {
		quickReplies = []string{}
	}

	JSON(w, http.StatusOK, chatResponse{
		Response:     reply.Response,
		QuickReplies: quickReplies,
		Success:      true,
		LimitReached: reply.LimitReached,
	})
}

// History returns the user's conversation history.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sess, err := h.repo.GetSession(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load session history", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	history := []interface{}{}
	if sess != nil {
		for _, ex := range sess.History {
			history = append(history, ex)
		}
	}

	JSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

// Clear deletes the user's session so the next message starts fresh.
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.repo.DeleteSession(r.Context(), userID); err != nil {
		slog.Error("Failed to clear session", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to clear conversation")
		return
	}

	slog.Info("Conversation cleared", "user_id", userID)
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Conversation history cleared.",
	})
}
