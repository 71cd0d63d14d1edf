package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey struct{}

var callerKey contextKey

// Middleware resolves the authenticated caller from the Authorization header
// and stores it in the request context. Identity is established upstream (the
// gateway terminates real authentication); the engine only needs a verified
// user id, passed explicitly rather than read from ambient session state.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		callerID, err := uuid.Parse(strings.TrimSpace(token))
		if !ok || err != nil || callerID == uuid.Nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication_required","message":"missing or invalid bearer identity"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), callerID)))
	})
}

func WithCaller(ctx context.Context, callerID uuid.UUID) context.Context {
	return context.WithValue(ctx, callerKey, callerID)
}

// Caller returns the authenticated user id, or uuid.Nil when the request
// bypassed the middleware.
func Caller(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(callerKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
