// Package middleware provides the HTTP middleware chain: authentication,
// request logging, panic recovery, rate limiting, and metrics.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MrSCAN/hobbyist-haven-api/internal/security"
	"github.com/MrSCAN/hobbyist-haven-api/internal/server/httpx"
	userdomain "github.com/MrSCAN/hobbyist-haven-api/internal/user/domain"
)

const bearerPrefix = "bearer "

// TokenVerifier verifies a bearer token and returns its subject user ID.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserFinder resolves a user by ID. Missing users return (nil, nil); errors
// are database failures only.
type UserFinder interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// RequireAuth returns middleware that authenticates the request from its
// Authorization header and attaches the resolved caller to the request
// context. Failure messages are distinct per cause but all authentication
// failures are 401; only store failures are 500.
func RequireAuth(tokens TokenVerifier, users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				httpx.Error(w, http.StatusUnauthorized, "No token provided")
				return
			}
			subject, err := tokens.Verify(token)
			if err != nil {
				if errors.Is(err, security.ErrTokenExpired) {
					httpx.Error(w, http.StatusUnauthorized, "Token has expired")
					return
				}
				httpx.Error(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			caller, err := users.GetByID(r.Context(), subject)
			if err != nil {
				slog.Error("resolve caller", "error", err, "user_id", subject)
				httpx.InternalError(w)
				return
			}
			if caller == nil {
				httpx.Error(w, http.StatusUnauthorized, "User not found")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or ""
// if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
