package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marcodena/storefront/internal/api/middleware"
	"github.com/marcodena/storefront/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWTKey = []byte("test-secret-key")

func signedToken(t *testing.T, userID uuid.UUID, key []byte, expiresAt time.Time) string {
	t.Helper()

	claims := &models.Claims{
		UserID: userID,
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err, "Failed to sign test token")

	return token
}

func TestAuthenticate(t *testing.T) {
	authMiddleware := middleware.NewAuthMiddleware(testJWTKey)

	t.Run("Success - valid bearer token", func(t *testing.T) {
		// Arrange
		userID := uuid.New()

		var seenClaims *models.Claims
		handler := authMiddleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenClaims = middleware.ClaimsFromContext(r.Context())
		}))

		req := httptest.NewRequest("GET", "/api/v1/orders", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, userID, testJWTKey, time.Now().Add(time.Hour)))
		recorder := httptest.NewRecorder()

		// Act
		handler(recorder, req)

		// Assert
		assert.Equal(t, http.StatusOK, recorder.Code)
		require.NotNil(t, seenClaims, "claims should reach the handler")
		assert.Equal(t, userID, seenClaims.UserID)
	})

	t.Run("Failure - missing header", func(t *testing.T) {
		// Arrange
		handler := authMiddleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be reached")
		}))

		req := httptest.NewRequest("GET", "/api/v1/orders", nil)
		recorder := httptest.NewRecorder()

		// Act
		handler(recorder, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("Failure - token signed with a different key", func(t *testing.T) {
		// Arrange
		handler := authMiddleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be reached")
		}))

		req := httptest.NewRequest("GET", "/api/v1/orders", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, uuid.New(), []byte("wrong-key"), time.Now().Add(time.Hour)))
		recorder := httptest.NewRecorder()

		// Act
		handler(recorder, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("Failure - expired token", func(t *testing.T) {
		// Arrange
		handler := authMiddleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be reached")
		}))

		req := httptest.NewRequest("GET", "/api/v1/orders", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, uuid.New(), testJWTKey, time.Now().Add(-time.Hour)))
		recorder := httptest.NewRecorder()

		// Act
		handler(recorder, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestOptionalAuthenticate(t *testing.T) {
	authMiddleware := middleware.NewAuthMiddleware(testJWTKey)

	t.Run("Anonymous requests pass through without claims", func(t *testing.T) {
		// Arrange
		reached := false
		handler := authMiddleware.OptionalAuthenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			assert.Nil(t, middleware.ClaimsFromContext(r.Context()))
		}))

		req := httptest.NewRequest("POST", "/api/v1/checkout", nil)
		recorder := httptest.NewRecorder()

		// Act
		handler(recorder, req)

		// Assert
		assert.True(t, reached, "anonymous request should reach the handler")
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("Valid token attaches claims", func(t *testing.T) {
		// Arrange
		userID := uuid.New()

		var seenClaims *models.Claims
		handler := authMiddleware.OptionalAuthenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenClaims = middleware.ClaimsFromContext(r.Context())
		}))

		req := httptest.NewRequest("POST", "/api/v1/checkout", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, userID, testJWTKey, time.Now().Add(time.Hour)))
		recorder := httptest.NewRecorder()

		// Act
		handler(recorder, req)

		// Assert
		require.NotNil(t, seenClaims)
		assert.Equal(t, userID, seenClaims.UserID)
	})

	t.Run("Malformed token is still rejected", func(t *testing.T) {
		// Arrange
		handler := authMiddleware.OptionalAuthenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be reached")
		}))

		req := httptest.NewRequest("POST", "/api/v1/checkout", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		recorder := httptest.NewRecorder()

		// Act
		handler(recorder, req)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}
