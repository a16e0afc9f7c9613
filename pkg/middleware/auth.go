package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fkhayef/tripsplit/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for the calling participant's user ID
	UserIDKey ContextKey = "user_id"

	// UserHeader carries the caller's user ID. Session management lives in the
	// hosting platform in front of this service, which sets the header.
	UserHeader = "X-User-ID"
)

// Identify reads the caller's user ID from the X-User-ID header and stores it in the
// request context. Requests without the header pass through anonymously.
func Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(UserHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			response.Unauthorized(w, "Invalid "+UserHeader+" header")
			return
		}

		ctx := WithUserID(r.Context(), id.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects requests that do not carry a caller identity
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			response.Unauthorized(w, UserHeader+" header required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID returns a copy of ctx carrying the user ID
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID extracts the user ID from the request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}
