package middleware

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/resquick/portal/internal/ctxkeys"
)

// SecurityHeaders issues the request's CSP nonce and sets the CSP and related
// headers. Pages read the nonce with templ.GetNonce; only scripts carrying it
// run. Evidence images may come from the configured S3 endpoint.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := ctxkeys.Config(r.Context())

		scriptSrc := "'self'"
		nonce, err := newNonce()
		if err != nil {
			slog.Error("failed to generate csp nonce", "error", err)
		} else {
			r = r.WithContext(templ.WithNonce(r.Context(), nonce))
			scriptSrc += " 'nonce-" + nonce + "'"
		}

		imgSrc := "'self' data:"
		if cfg != nil && cfg.S3Endpoint != "" {
			imgSrc += " " + cfg.S3Endpoint
		} else {
			imgSrc += " https://*.amazonaws.com"
		}

		csp := strings.Join([]string{
			"default-src 'self'",
			"script-src " + scriptSrc,
			"style-src 'self' 'unsafe-inline'",
			"img-src " + imgSrc,
			"frame-ancestors 'none'",
			"base-uri 'self'",
			"form-action 'self'",
		}, "; ")

		h := w.Header()
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if cfg != nil && cfg.IsProduction() {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func newNonce() (string, error) {
	b := make([]byte, 16)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// MaxBodySize caps request bodies before anything parses them.
func MaxBodySize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && limit > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
