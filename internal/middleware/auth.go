package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/schoolpoints/backend/internal/services"
)

// TokenParser validates bearer tokens.
type TokenParser interface {
	Enabled() bool
	ParseToken(token string) error
}

// SellerGate requires a seller session token when a seller password is configured.
// With the gate disabled every request passes through.
func SellerGate(auth TokenParser, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				services.SendCodedErrorResponse(w, "Authorization header required", "Unauthorized", http.StatusUnauthorized, nil)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				services.SendCodedErrorResponse(w, "Invalid authorization header format", "Unauthorized", http.StatusUnauthorized, nil)
				return
			}

			if err := auth.ParseToken(parts[1]); err != nil {
				logger.Info("[AUTH] rejected seller token", zap.String("path", r.URL.Path), zap.Error(err))
				services.SendCodedErrorResponse(w, "Invalid token", "Unauthorized", http.StatusUnauthorized, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
