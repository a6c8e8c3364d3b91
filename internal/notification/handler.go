package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"campus-chat/internal/middleware"
)

// Store is what the handler needs from the repository; tests swap in a fake.
type Store interface {
	ForUser(ctx context.Context, userID string, limit int) ([]*Record, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type Handler struct {
	store Store
	limit int
	log   zerolog.Logger
}

func NewHandler(store Store, limit int, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		limit: limit,
		log:   log.With().Str("component", "notification-handler").Logger(),
	}
}

// Routes mounts the polling surface consumed by the client-side aggregator.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/notifications", h.List)
	r.Patch("/api/notifications/{id}/read", h.MarkRead)
	r.Patch("/api/notifications/read-all", h.MarkAllRead)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	recs, err := h.store.ForUser(r.Context(), userID, h.limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list notifications")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []*Record{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recs)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing notification id", http.StatusBadRequest)
		return
	}

	if err := h.store.MarkRead(r.Context(), userID, id); err != nil {
		h.log.Error().Err(err).Msg("mark notification read")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.store.MarkAllRead(r.Context(), userID); err != nil {
		h.log.Error().Err(err).Msg("mark all notifications read")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
