package chat

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"campus-chat/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict to the school portal origins before exposing publicly
	},
}

// Handler serves the websocket endpoint and the message-history REST surface.
type Handler struct {
	hub   *Hub
	repo  *Repository // nil when history is disabled
	limit int
	log   zerolog.Logger
}

func NewHandler(hub *Hub, repo *Repository, historyLimit int, log zerolog.Logger) *Handler {
	return &Handler{
		hub:   hub,
		repo:  repo,
		limit: historyLimit,
		log:   log.With().Str("component", "chat-handler").Logger(),
	}
}

// ServeWs upgrades an authenticated request and hands the connection to the
// hub. Presence registration happens when the client sends addUser.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserID(r.Context()); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("upgrade failed")
		return
	}

	client := newClient(h.hub, conn, h.log)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// GetPresence serves GET /api/presence: the same online-user set the live
// channel announces, for callers that only poll.
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.UserID(r.Context()); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	users := h.hub.OnlineUsers(r.Context())
	if users == nil {
		users = []string{}
	}
	writeJSON(w, users)
}

// GetDirectHistory serves GET /api/messages?peer={id}.
func (h *Handler) GetDirectHistory(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		http.Error(w, "message history disabled", http.StatusServiceUnavailable)
		return
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	peer := r.URL.Query().Get("peer")
	if peer == "" {
		http.Error(w, "missing peer parameter", http.StatusBadRequest)
		return
	}

	msgs, err := h.repo.RecentDirect(r.Context(), userID, peer, h.limit)
	if err != nil {
		h.log.Error().Err(err).Msg("load direct history")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []*StoredMessage{}
	}
	writeJSON(w, msgs)
}

// GetGroupHistory serves GET /api/groups/{groupID}/messages.
func (h *Handler) GetGroupHistory(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		http.Error(w, "message history disabled", http.StatusServiceUnavailable)
		return
	}
	if _, ok := middleware.UserID(r.Context()); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	groupID := chi.URLParam(r, "groupID")
	if groupID == "" {
		http.Error(w, "missing group id", http.StatusBadRequest)
		return
	}

	msgs, err := h.repo.RecentGroup(r.Context(), groupID, h.limit)
	if err != nil {
		h.log.Error().Err(err).Msg("load group history")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []*StoredGroupMessage{}
	}
	writeJSON(w, msgs)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
