package testutils

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/marcodena/storefront/internal/api/middleware"
	"github.com/marcodena/storefront/internal/models"
	"github.com/google/uuid"
)

// CreateTestRequestWithSession builds a request carrying a discard
// logger and a session id, the way the middleware chain would.
func CreateTestRequestWithSession(method, target string, body io.Reader, sessionID string, pathParams map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)

	for key, value := range pathParams {
		req.SetPathValue(key, value)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.WithValue(req.Context(), middleware.SessionContextKey, sessionID)
	ctx = context.WithValue(ctx, middleware.LoggerKey, logger)

	return req.WithContext(ctx)
}

// CreateTestRequestWithUser additionally attaches auth claims for the
// given user.
func CreateTestRequestWithUser(method, target string, body io.Reader, sessionID string, userID uuid.UUID, pathParams map[string]string) *http.Request {
	req := CreateTestRequestWithSession(method, target, body, sessionID, pathParams)

	claims := &models.Claims{UserID: userID, Email: "test@example.com"}
	ctx := context.WithValue(req.Context(), middleware.UserContextKey, claims)

	return req.WithContext(ctx)
}
