package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewManager_RequiresSecret(t *testing.T) {
	_, err := NewManager(Config{})
	require.ErrorIs(t, err, ErrMissingKey)
}

func TestManager_RoundTrip(t *testing.T) {
	req := require.New(t)
	m, err := NewManager(Config{Secret: "s3cret", Issuer: "idp", AccessDuration: time.Minute})
	req.NoError(err)

	// When
	token, exp, err := m.GenerateAccessToken("u1", "alice")
	req.NoError(err)

	// Then
	req.WithinDuration(time.Now().Add(time.Minute), exp, 5*time.Second)
	claims, err := m.ValidateToken(token)
	req.NoError(err)
	req.Equal("u1", claims.UserID)
	req.Equal("alice", claims.Username)
}

func TestManager_ValidateToken(t *testing.T) {
	m, err := NewManager(Config{Secret: "s3cret", Issuer: "idp"})
	require.NoError(t, err)

	sign := func(t *testing.T, secret string, claims *Claims) string {
		t.Helper()
		token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	registered := func(subject, issuer string, exp time.Time) gojwt.RegisteredClaims {
		return gojwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			ExpiresAt: gojwt.NewNumericDate(exp),
		}
	}
	later := time.Now().Add(time.Hour)

	t.Run("subject-only tokens resolve the user id", func(t *testing.T) {
		claims, err := m.ValidateToken(sign(t, "s3cret", &Claims{RegisteredClaims: registered("u2", "idp", later)}))
		require.NoError(t, err)
		require.Equal(t, "u2", claims.UserID)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := m.ValidateToken(sign(t, "s3cret", &Claims{RegisteredClaims: registered("u2", "idp", time.Now().Add(-time.Hour))}))
		require.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := m.ValidateToken(sign(t, "other", &Claims{RegisteredClaims: registered("u2", "idp", later)}))
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := m.ValidateToken(sign(t, "s3cret", &Claims{RegisteredClaims: registered("u2", "elsewhere", later)}))
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh tokens are not accepted", func(t *testing.T) {
		_, err := m.ValidateToken(sign(t, "s3cret", &Claims{RegisteredClaims: registered("u2", "idp", later), Type: "refresh"}))
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no identity", func(t *testing.T) {
		_, err := m.ValidateToken(sign(t, "s3cret", &Claims{RegisteredClaims: registered("", "idp", later)}))
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
