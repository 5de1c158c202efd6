package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonwraymond/healthops/observe"
)

type contextKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext returns the identity attached by Middleware, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(contextKey{}).(*Identity)
	return id
}

// Privileged reports whether ctx carries an authenticated identity. When
// role is non-empty the identity must also hold it.
func Privileged(ctx context.Context, role string) bool {
	id := IdentityFromContext(ctx)
	if id == nil {
		return false
	}
	return role == "" || id.HasRole(role)
}

// Middleware authenticates each request with a and attaches the resulting
// identity to its context. Requests without valid credentials pass through
// anonymously. A nil authenticator yields a pass-through handler.
func Middleware(a Authenticator, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		if a == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := RequestFromHTTP(r)
			if !a.Supports(req) {
				next.ServeHTTP(w, r)
				return
			}
			result, err := a.Authenticate(r.Context(), req)
			switch {
			case err != nil:
				logger.Error(r.Context(), "authentication failed",
					observe.F("authenticator", a.Name()), observe.F("error", err.Error()))
			case result.Authenticated:
				r = r.WithContext(WithIdentity(r.Context(), result.Identity))
			default:
				logger.Debug(r.Context(), "credentials rejected",
					observe.F("method", result.Method), observe.F("error", fmt.Sprint(result.Error)))
			}
			next.ServeHTTP(w, r)
		})
	}
}
