package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resquick/portal/internal/config"
	"github.com/resquick/portal/internal/ctxkeys"
)

func newTestCSRF(t *testing.T) (http.Handler, *http.Cookie) {
	t.Helper()
	var seen string
	h := NewCSRF(&config.Config{AppEnv: "development", AppURL: "https://relief.example.org"}).
		Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = ctxkeys.CSRFToken(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

	// GET issues a token cookie and exposes it to templates
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/signup", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookies[0].Value, seen)
	assert.True(t, cookies[0].HttpOnly)
	assert.False(t, cookies[0].Secure)

	return h, cookies[0]
}

func TestCSRFToken(t *testing.T) {
	h, cookie := newTestCSRF(t)

	tests := []struct {
		name   string
		header string
		form   string
		want   int
	}{
		{"missing token", "", "", http.StatusForbidden},
		{"header token", cookie.Value, "", http.StatusNoContent},
		{"form token", "", cookie.Value, http.StatusNoContent},
		{"mismatched token", newCSRFToken(), "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			if tt.form != "" {
				form.Set(csrfFormField, tt.form)
			}
			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.AddCookie(cookie)
			if tt.header != "" {
				req.Header.Set(csrfHeader, tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCSRFCrossOrigin(t *testing.T) {
	h, cookie := newTestCSRF(t)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"cross-site fetch", map[string]string{"Sec-Fetch-Site": "cross-site"}, http.StatusForbidden},
		{"same-origin fetch", map[string]string{"Sec-Fetch-Site": "same-origin"}, http.StatusNoContent},
		{"foreign origin", map[string]string{"Origin": "https://evil.example"}, http.StatusForbidden},
		{"public app url", map[string]string{"Origin": "https://relief.example.org", "Sec-Fetch-Site": "cross-site"}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/applications/1/delete", nil)
			req.AddCookie(cookie)
			req.Header.Set(csrfHeader, cookie.Value)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCSRFSecureCookieInProduction(t *testing.T) {
	h := NewCSRF(&config.Config{AppEnv: "production"}).Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.True(t, rec.Result().Cookies()[0].Secure)
}

func TestAppOrigin(t *testing.T) {
	assert.Equal(t, "https://relief.example.org", appOrigin("https://relief.example.org/portal/"))
	assert.Equal(t, "http://localhost:8090", appOrigin("http://localhost:8090"))
	assert.Empty(t, appOrigin("localhost"))
	assert.Empty(t, appOrigin(""))
}
