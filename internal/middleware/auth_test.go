package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	wantToken string
}

func (f *fakeValidator) ValidateToken(token string) (string, string, error) {
	if token != f.wantToken {
		return "", "", errors.New("invalid token")
	}
	return "user-1", "Ada", nil
}

func protected(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var seenUser string
	am := NewAuthMiddleware(&fakeValidator{wantToken: "good-token"})
	h := am.Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		require.True(t, ok)
		seenUser = id
		w.WriteHeader(http.StatusOK)
	}))
	return h, &seenUser
}

func TestAuthMiddlewareAcceptsBearerHeader(t *testing.T) {
	h, seenUser := protected(t)

	req := httptest.NewRequest(http.MethodGet, "/api/presence", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-1", *seenUser)
}

func TestAuthMiddlewareAcceptsQueryParam(t *testing.T) {
	h, _ := protected(t)

	req := httptest.NewRequest(http.MethodGet, "/ws?token=good-token", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	h, _ := protected(t)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsBadToken(t *testing.T) {
	h, _ := protected(t)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
