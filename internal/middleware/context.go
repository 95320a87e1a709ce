package middleware

import (
	"net/http"

	"github.com/resquick/portal/internal/config"
	"github.com/resquick/portal/internal/ctxkeys"
)

// Config adds the sanitized app configuration and the request path to the
// context for templates. Secrets never reach the context.
func Config(cfg *config.Config) func(http.Handler) http.Handler {
	safe := cfg.Sanitized()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := ctxkeys.WithConfig(r.Context(), safe)
			ctx = ctxkeys.WithURLPath(ctx, r.URL.Path)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
