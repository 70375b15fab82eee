// Package rbac provides the admin-only route guard.
package rbac

import (
	"log/slog"
	"net/http"

	"github.com/MrSCAN/hobbyist-haven-api/internal/server/httpx"
	"github.com/MrSCAN/hobbyist-haven-api/internal/server/middleware"
	userdomain "github.com/MrSCAN/hobbyist-haven-api/internal/user/domain"
)

// RequireAdmin returns middleware that authenticates the caller (via
// middleware.RequireAuth, which always runs first) and then requires the
// stored role to be ADMIN. Role mismatch is 403; a store failure while
// checking the role is 500, never silently treated as unauthorized.
func RequireAdmin(tokens middleware.TokenVerifier, users middleware.UserFinder) func(next http.Handler) http.Handler {
	auth := middleware.RequireAuth(tokens, users)
	return func(next http.Handler) http.Handler {
		return auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := middleware.CallerFromContext(r.Context())
			if !ok {
				httpx.Error(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			// Re-read the stored role rather than trusting the token-resolved
			// snapshot: a demotion takes effect on the next request even
			// though tokens cannot be revoked.
			u, err := users.GetByID(r.Context(), caller.ID)
			if err != nil {
				slog.Error("check admin role", "error", err, "user_id", caller.ID)
				httpx.Error(w, http.StatusInternalServerError, "Error checking admin status")
				return
			}
			if u == nil || u.Role != userdomain.RoleAdmin {
				httpx.Error(w, http.StatusForbidden, "Forbidden: Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
