package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolpoints/backend/internal/config"
)

var testArgon2 = config.Argon2Config{
	Time:       1,
	Memory:     8 * 1024,
	Threads:    1,
	KeyLength:  32,
	SaltLength: 16,
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		SellerPassword: "school123",
		JWTSecret:      "test-secret",
		JWTExpiry:      time.Hour,
		Argon2:         testArgon2,
	}
}

func TestSellerAuthService_Authenticate(t *testing.T) {
	t.Run("plain password", func(t *testing.T) {
		s := NewSellerAuthService(testAuthConfig(), zap.NewNop())
		assert.True(t, s.Enabled())
		assert.True(t, s.Authenticate("school123"))
		assert.False(t, s.Authenticate("school124"))
		assert.False(t, s.Authenticate(""))
	})

	t.Run("argon2 hash", func(t *testing.T) {
		hash, err := HashPassword("school123", testArgon2)
		require.NoError(t, err)

		cfg := testAuthConfig()
		cfg.SellerPassword = ""
		cfg.SellerPasswordHash = hash
		s := NewSellerAuthService(cfg, zap.NewNop())

		assert.True(t, s.Authenticate("school123"))
		assert.False(t, s.Authenticate("wrong"))
	})

	t.Run("malformed hash", func(t *testing.T) {
		assert.False(t, VerifyPassword("school123", "not-a-hash", testArgon2))
		assert.False(t, VerifyPassword("school123", "!!$!!", testArgon2))
	})

	t.Run("no password configured", func(t *testing.T) {
		cfg := testAuthConfig()
		cfg.SellerPassword = ""
		s := NewSellerAuthService(cfg, zap.NewNop())
		assert.False(t, s.Enabled())
		assert.False(t, s.Authenticate(""))
	})
}

func TestSellerAuthService_Tokens(t *testing.T) {
	s := NewSellerAuthService(testAuthConfig(), zap.NewNop())

	t.Run("round trip", func(t *testing.T) {
		token, expiresAt, err := s.IssueToken()
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)
		assert.NoError(t, s.ParseToken(token))
	})

	t.Run("expired", func(t *testing.T) {
		token, _, err := s.IssueToken()
		require.NoError(t, err)

		later := NewSellerAuthService(testAuthConfig(), zap.NewNop())
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		assert.ErrorIs(t, later.ParseToken(token), ErrInvalidToken)
	})

	t.Run("signed with another secret", func(t *testing.T) {
		cfg := testAuthConfig()
		cfg.JWTSecret = "other-secret"
		other := NewSellerAuthService(cfg, zap.NewNop())
		token, _, err := other.IssueToken()
		require.NoError(t, err)

		assert.ErrorIs(t, s.ParseToken(token), ErrInvalidToken)
	})

	t.Run("missing seller role", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": 1,
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte("test-secret"))
		require.NoError(t, err)

		assert.ErrorIs(t, s.ParseToken(signed), ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		assert.ErrorIs(t, s.ParseToken("not.a.token"), ErrInvalidToken)
	})
}

func TestSellerAuthService_CreateSession(t *testing.T) {
	s := NewSellerAuthService(testAuthConfig(), zap.NewNop())

	t.Run("successful session", func(t *testing.T) {
		body, _ := json.Marshal(SessionRequest{Password: "school123"})
		r := httptest.NewRequest("POST", "/api/seller/session", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		s.CreateSession(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response SessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.NotEmpty(t, response.Token)
		assert.NoError(t, s.ParseToken(response.Token))
	})

	t.Run("wrong password", func(t *testing.T) {
		body, _ := json.Marshal(SessionRequest{Password: "guess"})
		r := httptest.NewRequest("POST", "/api/seller/session", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		s.CreateSession(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid request body", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/api/seller/session", bytes.NewBuffer([]byte("invalid")))
		w := httptest.NewRecorder()

		s.CreateSession(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/api/seller/session", bytes.NewBufferString(`{"password":"school123","user":"x"}`))
		w := httptest.NewRecorder()

		s.CreateSession(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing password", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/api/seller/session", bytes.NewBufferString(`{}`))
		w := httptest.NewRecorder()

		s.CreateSession(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Contains(t, response.Details, "Password")
	})
}
