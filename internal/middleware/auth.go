package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/resquick/portal/internal/ctxkeys"
	"github.com/resquick/portal/internal/model"
	"github.com/resquick/portal/internal/service"
)

// AuthMiddleware reads the session cookie and adds the principal to the
// context. Citizen sessions also carry their account. Invalid sessions are
// cleared and the request continues as a guest.
func AuthMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(service.SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := authService.VerifyJWT(cookie.Value)
			if err != nil {
				authService.ClearJWTCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := ctxkeys.WithPrincipal(r.Context(), principal)

			if principal.IsCitizen() {
				account, err := authService.Account(principal)
				if err != nil {
					// Account gone or unreadable: drop the session
					slog.Warn("session account lookup failed", "error", err, "principal", principal.ID)
					authService.ClearJWTCookie(w)
					next.ServeHTTP(w, r)
					return
				}
				account.PasswordHash = ""
				ctx = ctxkeys.WithAccount(ctx, account)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCitizen redirects anyone without a citizen session to the citizen login.
func RequireCitizen(next http.HandlerFunc) http.HandlerFunc {
	return requirePage(func(p *model.Principal) bool { return p.IsCitizen() }, "/login", next)
}

// RequireOfficial redirects anyone without an official session to the officials login.
func RequireOfficial(next http.HandlerFunc) http.HandlerFunc {
	return requirePage(func(p *model.Principal) bool { return p.IsOfficial() }, "/officials/login", next)
}

// RequireAuth lets any logged-in principal through.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return requirePage(func(p *model.Principal) bool { return p != nil }, "/", next)
}

// RequireGuest sends logged-in principals to their dashboard.
func RequireGuest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := ctxkeys.Principal(r.Context())
		switch {
		case p.IsCitizen():
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		case p.IsOfficial():
			http.Redirect(w, r, "/officials/dashboard", http.StatusSeeOther)
		default:
			next.ServeHTTP(w, r)
		}
	}
}

// APIRequireCitizen answers 401 JSON unless the caller has a citizen session.
func APIRequireCitizen(next http.HandlerFunc) http.HandlerFunc {
	return requireAPI(func(p *model.Principal) bool { return p.IsCitizen() }, next)
}

// APIRequireAuth answers 401 JSON unless the caller has any session.
func APIRequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return requireAPI(func(p *model.Principal) bool { return p != nil }, next)
}

func requirePage(allowed func(*model.Principal) bool, redirect string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowed(ctxkeys.Principal(r.Context())) {
			http.Redirect(w, r, redirect, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func requireAPI(allowed func(*model.Principal) bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowed(ctxkeys.Principal(r.Context())) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"message": "Authentication error. Please log in.",
			})
			return
		}
		next.ServeHTTP(w, r)
	}
}
