package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

type contextKey struct{}

// FromContext returns the principal attached by Middleware, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// WithPrincipal attaches a principal to the context. Exported for
// handler tests that bypass the middleware.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// Middleware resolves an optional Authorization header. Requests
// without a token pass through anonymous, since several read endpoints
// are public, but a token that fails to resolve is rejected so a
// caller never silently degrades to anonymous access.
func Middleware(resolver Resolver, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				http.Error(w, "malformed Authorization header", http.StatusUnauthorized)
				return
			}

			principal, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("token resolution failed")
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
