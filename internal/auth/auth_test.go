package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	v := NewValidator(testSecret)
	token := mintToken(t, testSecret, jwt.MapClaims{
		"uid":  "user-1",
		"name": "Ada Lovelace",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	userID, name, err := v.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
	require.Equal(t, "Ada Lovelace", name)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	v := NewValidator(testSecret)
	token := mintToken(t, "some-other-secret", jwt.MapClaims{
		"uid": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, _, err := v.ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	v := NewValidator(testSecret)
	token := mintToken(t, testSecret, jwt.MapClaims{
		"uid": "user-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	_, _, err := v.ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsMissingUserID(t *testing.T) {
	v := NewValidator(testSecret)
	token := mintToken(t, testSecret, jwt.MapClaims{
		"name": "No Id",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	_, _, err := v.ValidateToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	v := NewValidator(testSecret)
	_, _, err := v.ValidateToken("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
