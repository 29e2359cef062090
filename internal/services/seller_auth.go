package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"

	"github.com/schoolpoints/backend/internal/config"
)

const sellerRole = "seller"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// SessionRequest represents the seller session request payload
// @Description Seller session request structure
type SessionRequest struct {
	Password string `json:"password" validate:"required" example:"school123"` // Shared seller password
}

// SessionResponse represents the seller session response
// @Description Seller session response structure
type SessionResponse struct {
	Token     string    `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."` // JWT token
	ExpiresAt time.Time `json:"expiresAt"`                                               // Token expiry
}

// SellerAuthService checks the shared seller password and issues session tokens.
type SellerAuthService struct {
	cfg       config.AuthConfig
	validator *ValidationHelper
	logger    *zap.Logger
	now       func() time.Time
}

func NewSellerAuthService(cfg config.AuthConfig, logger *zap.Logger) *SellerAuthService {
	return &SellerAuthService{
		cfg:       cfg,
		validator: NewValidationHelper(),
		logger:    logger,
		now:       time.Now,
	}
}

// Enabled reports whether a seller password is configured.
func (s *SellerAuthService) Enabled() bool {
	return s.cfg.GateEnabled()
}

// Authenticate compares password with the configured plain or hashed password.
func (s *SellerAuthService) Authenticate(password string) bool {
	if s.cfg.SellerPasswordHash != "" {
		return VerifyPassword(password, s.cfg.SellerPasswordHash, s.cfg.Argon2)
	}
	if s.cfg.SellerPassword == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.SellerPassword)) == 1
}

// IssueToken signs a seller session token.
func (s *SellerAuthService) IssueToken() (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.JWTExpiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": sellerRole,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken validates a session token issued by IssueToken.
func (s *SellerAuthService) ParseToken(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["role"] != sellerRole {
		return ErrInvalidToken
	}
	return nil
}

// CreateSession exchanges the seller password for a session token
// @Summary Open a seller session
// @Description Exchange the shared seller password for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SessionRequest true "Session request"
// @Success 200 {object} SessionResponse "Session opened"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /seller/session [post]
func (s *SellerAuthService) CreateSession(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("[AUTH] Seller session attempt", zap.String("ip", r.RemoteAddr))

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req SessionRequest
	if err := dec.Decode(&req); err != nil {
		s.logger.Info("[AUTH] Seller session failed - invalid request", zap.Error(err))
		SendErrorResponse(w, "Invalid request", http.StatusBadRequest, nil)
		return
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if !s.Enabled() {
		s.logger.Info("[AUTH] Seller gate disabled, issuing session without password check")
	} else if !s.Authenticate(req.Password) {
		s.logger.Warn("[AUTH] Invalid seller password", zap.String("ip", r.RemoteAddr))
		SendErrorResponse(w, ErrInvalidCredentials.Error(), http.StatusUnauthorized, nil)
		return
	}

	token, expiresAt, err := s.IssueToken()
	if err != nil {
		s.logger.Error("[AUTH] JWT generation failed", zap.Error(err))
		SendErrorResponse(w, "Failed to generate token", http.StatusInternalServerError, nil)
		return
	}

	s.logger.Info("[AUTH] Seller session opened", zap.Time("expires_at", expiresAt))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SessionResponse{Token: token, ExpiresAt: expiresAt})
}

// HashPassword derives an argon2id "salt$hash" string suitable for SELLER_PASSWORD_HASH.
func HashPassword(password string, params config.Argon2Config) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, params.KeyLength)
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword checks password against a HashPassword result.
func VerifyPassword(password, hashedPassword string, params config.Argon2Config) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computedHash) == 1
}
