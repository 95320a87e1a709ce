package routes

import (
	"net/http"

	"github.com/resquick/portal/internal/app"
	"github.com/resquick/portal/internal/handler"
	"github.com/resquick/portal/internal/metrics"
	"github.com/resquick/portal/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	home := handler.NewHomeHandler(app.DB)
	auth := handler.NewAuthHandler(app.AuthService)
	applications := handler.NewApplicationHandler(app.ApplicationService, app.EvidenceService, app.Reports)
	evidence := handler.NewEvidenceHandler(app.ApplicationService, app.EvidenceService)
	help := handler.NewHelpHandler(app.HelpService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /{$}", auth.LoginOptionPage)
	mux.HandleFunc("GET /help/{page}", help.ShowPage)
	mux.HandleFunc("GET /healthz", home.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	// Auth - login and signup submissions are rate limited per IP
	limiter := middleware.NewRateLimiter(app.Cfg.LoginRatePerMinute, app.Cfg.TrustProxy)

	mux.HandleFunc("GET /login", middleware.RequireGuest(auth.LoginPage))
	mux.HandleFunc("POST /login", limiter.Limit(middleware.RequireGuest(auth.Login)))
	mux.HandleFunc("GET /signup", middleware.RequireGuest(auth.SignupPage))
	mux.HandleFunc("POST /signup", limiter.Limit(middleware.RequireGuest(auth.Signup)))
	mux.HandleFunc("GET /officials/login", middleware.RequireGuest(auth.OfficialLoginPage))
	mux.HandleFunc("POST /officials/login", limiter.Limit(middleware.RequireGuest(auth.OfficialLogin)))
	mux.HandleFunc("POST /logout", auth.Logout)

	// ============================================================================
	// PROTECTED ROUTES
	// ============================================================================

	// Pages
	mux.HandleFunc("GET /dashboard", middleware.RequireCitizen(applications.Dashboard))
	mux.HandleFunc("GET /officials/dashboard", middleware.RequireOfficial(applications.OfficialsDashboard))
	mux.HandleFunc("GET /applications", middleware.RequireCitizen(applications.MyApplications))
	mux.HandleFunc("GET /applications/new", middleware.RequireAuth(applications.NewPage))
	mux.HandleFunc("GET /applications/{id}/pdf", middleware.RequireAuth(applications.PDF))
	mux.HandleFunc("GET /"+app.EvidenceService.Prefix()+"/{name}", middleware.RequireAuth(evidence.Serve))

	// JSON actions
	mux.HandleFunc("POST /applications", middleware.APIRequireCitizen(applications.Submit))
	mux.HandleFunc("POST /applications/{id}/delete", middleware.APIRequireCitizen(applications.Delete))
	mux.HandleFunc("DELETE /applications/{id}", middleware.APIRequireCitizen(applications.Delete))
	mux.HandleFunc("POST /applications/{id}/analyze", middleware.APIRequireAuth(applications.Analyze))

	// ============================================================================
	// FALLBACK
	// ============================================================================

	// 404
	mux.HandleFunc("/{path...}", home.NotFoundPage)

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.Config(app.Cfg), // Config must be first (needed by SecurityHeaders for S3 endpoint)
		middleware.RequestLogging,
		middleware.SecurityHeaders, // Issues the CSP nonce pages render with
		middleware.MaxBodySize(app.Cfg.MaxUploadSize), // Before CSRF, which parses form bodies
		middleware.NewCSRF(app.Cfg).Protect,
		middleware.AuthMiddleware(app.AuthService),
		middleware.Metrics, // Must wrap the mux to see the matched pattern
	)

	return handler
}
