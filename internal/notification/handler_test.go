package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"campus-chat/internal/middleware"
)

type fakeStore struct {
	records    []*Record
	readIDs    []string
	allReadFor string
	err        error
}

func (f *fakeStore) ForUser(ctx context.Context, userID string, limit int) ([]*Record, error) {
	return f.records, f.err
}

func (f *fakeStore) MarkRead(ctx context.Context, userID, id string) error {
	f.readIDs = append(f.readIDs, id)
	return f.err
}

func (f *fakeStore) MarkAllRead(ctx context.Context, userID string) error {
	f.allReadFor = userID
	return f.err
}

func newTestRouter(store Store, userID string) http.Handler {
	r := chi.NewRouter()
	if userID != "" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := context.WithValue(req.Context(), middleware.UserKey, userID)
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
	}
	NewHandler(store, 50, zerolog.Nop()).Routes(r)
	return r
}

func TestListNotifications(t *testing.T) {
	store := &fakeStore{records: []*Record{{
		ID:           "n1",
		Type:         TypeMessage,
		Title:        "New message",
		Message:      "You have a new message from bob",
		TargetUserID: "alice",
		CreatedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}}}
	router := newTestRouter(store, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []*Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "n1", got[0].ID)
	require.False(t, got[0].Read)
}

func TestListNotificationsEmptyIsArray(t *testing.T) {
	router := newTestRouter(&fakeStore{}, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestMarkRead(t *testing.T) {
	store := &fakeStore{}
	router := newTestRouter(store, "alice")

	req := httptest.NewRequest(http.MethodPatch, "/api/notifications/n1/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []string{"n1"}, store.readIDs)
}

func TestMarkAllRead(t *testing.T) {
	store := &fakeStore{}
	router := newTestRouter(store, "alice")

	req := httptest.NewRequest(http.MethodPatch, "/api/notifications/read-all", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "alice", store.allReadFor)
}

func TestNotificationsRequireIdentity(t *testing.T) {
	router := newTestRouter(&fakeStore{}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListNotificationsStoreFailure(t *testing.T) {
	router := newTestRouter(&fakeStore{err: errors.New("db down")}, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
