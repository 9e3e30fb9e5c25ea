package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const CallerKey contextKey = "caller"

// TokenVerifier resolves a bearer token to the caller id it was issued for.
type TokenVerifier interface {
	VerifyToken(raw string) (string, error)
}

// JWTAuth validates the bearer token from the Authorization header and stores the
// caller id in the request context.
func JWTAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				WriteError(w, http.StatusUnauthorized, CodeAuth, "missing Authorization header")
				return
			}

			scheme, token, ok := strings.Cut(auth, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				WriteError(w, http.StatusUnauthorized, CodeAuth, "invalid Authorization header format")
				return
			}

			caller, err := v.VerifyToken(token)
			if err != nil || caller == "" {
				WriteError(w, http.StatusUnauthorized, CodeAuth, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCallerID(r.Context(), caller)))
		})
	}
}

// CallerID returns the authenticated caller id, or "" outside JWTAuth.
func CallerID(ctx context.Context) string {
	if caller, ok := ctx.Value(CallerKey).(string); ok {
		return caller
	}
	return ""
}

func WithCallerID(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}
