package middleware

import (
	"context"

	userdomain "github.com/MrSCAN/hobbyist-haven-api/internal/user/domain"
)

type contextKey struct{ name string }

var callerKey = contextKey{"caller"}

// WithCaller returns a context carrying the authenticated caller. Set by
// RequireAuth for the lifetime of one request; never shared across requests.
func WithCaller(ctx context.Context, u *userdomain.User) context.Context {
	return context.WithValue(ctx, callerKey, u)
}

// CallerFromContext returns the authenticated caller and true if set;
// otherwise nil, false.
func CallerFromContext(ctx context.Context) (*userdomain.User, bool) {
	u, ok := ctx.Value(callerKey).(*userdomain.User)
	return u, ok
}
