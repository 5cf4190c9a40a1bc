package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const SessionContextKey = contextKey("session_id")

const sessionCookieName = "session_id"

// Session guarantees every visitor has a stable session id, issued as a
// cookie on first contact. The id keys the visitor's cart in Redis, for
// guests and logged-in users alike.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		var sessionID string

		cookie, err := r.Cookie(sessionCookieName)
		if err == nil && cookie.Value != "" {
			sessionID = cookie.Value
		} else {
			sessionID = uuid.NewString()

			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, sessionID)

		next.ServeHTTP(w, r.WithContext(ctx))

	})
}

// SessionFromContext returns the visitor's session id, empty when the
// session middleware did not run.
func SessionFromContext(ctx context.Context) string {
	if sessionID, ok := ctx.Value(SessionContextKey).(string); ok {
		return sessionID
	}

	return ""
}
