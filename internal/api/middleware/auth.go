package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/marcodena/storefront/internal/errors"
	"github.com/marcodena/storefront/internal/models"
	"github.com/marcodena/storefront/internal/utils/response"
	"github.com/golang-jwt/jwt/v5"
)

const UserContextKey = contextKey("user")

type AuthMiddleware struct {
	jwtKey []byte
}

func NewAuthMiddleware(jwtKey []byte) *AuthMiddleware {
	return &AuthMiddleware{jwtKey: jwtKey}
}

func (m *AuthMiddleware) parseToken(r *http.Request) (*models.Claims, *errors.AppError) {

	authHeader := r.Header.Get("Authorization")

	if authHeader == "" {
		return nil, errors.UnauthorizedError("Authorization header is required")
	}

	// Token is of format : "Bearer <token>"
	tokenParts := strings.Split(authHeader, " ")

	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return nil, errors.UnauthorizedError("Invalid authorization format")
	}

	claims := &models.Claims{}

	token, err := jwt.ParseWithClaims(tokenParts[1], claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.BadRequestError("unexpected signing method")
		}
		return m.jwtKey, nil
	})

	if err != nil || !token.Valid {
		return nil, errors.UnauthorizedError("Invalid or expired token")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, errors.UnauthorizedError("Token expired")
	}

	return claims, nil
}

// Authenticate rejects requests without a valid bearer token.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := LoggerFromContext(r.Context())

		claims, appErr := m.parseToken(r)
		if appErr != nil {
			logger.Warn("Authentication failed", slog.String("reason", appErr.Message))
			response.Error(w, appErr)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)

		requestScopedLogger := logger.With(slog.String("userId", claims.UserID.String()))
		ctx = context.WithValue(ctx, LoggerKey, requestScopedLogger)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// OptionalAuthenticate attaches claims when a valid token is present and
// lets anonymous requests straight through. Checkout uses this so guests
// can order.
func (m *AuthMiddleware) OptionalAuthenticate(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, appErr := m.parseToken(r)
		if appErr != nil {
			response.Error(w, appErr)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// ClaimsFromContext returns the authenticated user's claims, nil for
// anonymous requests.
func ClaimsFromContext(ctx context.Context) *models.Claims {
	if claims, ok := ctx.Value(UserContextKey).(*models.Claims); ok {
		return claims
	}

	return nil
}
