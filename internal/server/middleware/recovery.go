package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/MrSCAN/hobbyist-haven-api/internal/server/httpx"
)

// Recovery converts a handler panic into a 500 response instead of crashing
// the process. The panic value and stack are logged; the client sees only the
// generic message.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				httpx.InternalError(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
