package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/resquick/portal/internal/config"
	"github.com/resquick/portal/internal/ctxkeys"
)

const (
	csrfCookieName = "csrf_token"
	csrfFormField  = "csrf_token"
	csrfHeader     = "X-CSRF-Token"
	csrfTokenLen   = 32
	csrfCookieAge  = 7 * 24 * 60 * 60
)

// CSRF guards state-changing requests. One passes only when the browser does
// not mark it cross-origin (Sec-Fetch-Site or Origin, via
// http.CrossOriginProtection) and it echoes the csrf_token cookie, either in
// the X-CSRF-Token header (fetch submissions) or the csrf_token form field.
// Every request carries the token in its context for pages to embed.
type CSRF struct {
	secure  bool
	origins *http.CrossOriginProtection
}

func NewCSRF(cfg *config.Config) *CSRF {
	c := &CSRF{
		secure:  cfg.IsProduction(),
		origins: http.NewCrossOriginProtection(),
	}

	// Behind a proxy the Host header may not match the public URL
	if origin := appOrigin(cfg.AppURL); origin != "" {
		err := c.origins.AddTrustedOrigin(origin)
		if err != nil {
			slog.Warn("APP_URL is not usable as a trusted origin", "error", err, "app_url", cfg.AppURL)
		}
	}
	c.origins.SetDenyHandler(http.HandlerFunc(c.reject))

	return c
}

func (c *CSRF) Protect(next http.Handler) http.Handler {
	return c.origins.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := c.token(w, r)
		r = r.WithContext(ctxkeys.WithCSRFToken(r.Context(), token))

		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		// PostFormValue parses urlencoded and multipart bodies alike
		submitted := r.Header.Get(csrfHeader)
		if submitted == "" {
			submitted = r.PostFormValue(csrfFormField)
		}

		if !sameToken(token, submitted) {
			c.reject(w, r)
			return
		}

		next.ServeHTTP(w, r)
	}))
}

func (c *CSRF) reject(w http.ResponseWriter, r *http.Request) {
	slog.Warn("csrf check failed",
		"path", r.URL.Path,
		"method", r.Method,
		"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
		"origin", r.Header.Get("Origin"),
	)
	http.Error(w, "Invalid CSRF token", http.StatusForbidden)
}

// token returns the browser's token, issuing a fresh cookie when it has none
// or an invalid one.
func (c *CSRF) token(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(csrfCookieName)
	if err == nil && len(cookie.Value) == base64.RawURLEncoding.EncodedLen(csrfTokenLen) {
		return cookie.Value
	}

	token := newCSRFToken()
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   csrfCookieAge,
	})

	return token
}

func newCSRFToken() string {
	b := make([]byte, csrfTokenLen)
	_, err := rand.Read(b)
	if err != nil {
		panic("failed to generate csrf token: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func sameToken(expected, actual string) bool {
	if expected == "" || actual == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}

// appOrigin reduces the configured public URL to scheme://host[:port].
func appOrigin(appURL string) string {
	u, err := url.Parse(appURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
