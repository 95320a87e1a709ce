package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/resquick/portal/internal/metrics"
	"github.com/resquick/portal/internal/model"
	"github.com/resquick/portal/internal/service"
	"github.com/resquick/portal/internal/ui"
	"github.com/resquick/portal/internal/ui/pages"
)

const genericError = "An error occurred. Please try again."

type authHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *authHandler {
	return &authHandler{authService: authService}
}

func (h *authHandler) LoginOptionPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.LoginOption())
}

func (h *authHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	form := pages.LoginForm{}
	if r.URL.Query().Has("registered") {
		form.Notice = "Signup successful! Please login."
	}
	ui.Render(w, r, pages.CitizenLogin(form))
}

func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	nationalID := strings.TrimSpace(r.FormValue("aadhaar"))
	password := r.FormValue("password")

	account, err := h.authService.Login(nationalID, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			metrics.LoginAttempts.WithLabelValues(string(model.KindCitizen), "failure").Inc()
			ui.RenderStatus(w, r, http.StatusUnauthorized, pages.CitizenLogin(pages.LoginForm{
				NationalID: nationalID,
				Error:      "Invalid Aadhaar or Password",
			}))
			return
		}
		slog.Error("citizen login failed", "error", err)
		ui.RenderStatus(w, r, http.StatusInternalServerError, pages.CitizenLogin(pages.LoginForm{
			NationalID: nationalID,
			Error:      genericError,
		}))
		return
	}

	err = h.authService.StartSession(w, model.CitizenPrincipal(account.ID))
	if err != nil {
		slog.Error("failed to start session", "error", err, "account_id", account.ID)
		ui.RenderStatus(w, r, http.StatusInternalServerError, pages.CitizenLogin(pages.LoginForm{Error: genericError}))
		return
	}

	metrics.LoginAttempts.WithLabelValues(string(model.KindCitizen), "success").Inc()
	slog.Info("citizen logged in", "account_id", account.ID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *authHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.Signup(pages.SignupForm{}))
}

func (h *authHandler) Signup(w http.ResponseWriter, r *http.Request) {
	in := service.SignupInput{
		NationalID: strings.TrimSpace(r.FormValue("aadhaar")),
		Name:       strings.TrimSpace(r.FormValue("name")),
		Mobile:     strings.TrimSpace(r.FormValue("mobile")),
		Password:   r.FormValue("password"),
	}
	form := pages.SignupForm{NationalID: in.NationalID, Name: in.Name, Mobile: in.Mobile}

	account, err := h.authService.Signup(in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			form.Error = inputMessage(err)
			ui.RenderStatus(w, r, http.StatusBadRequest, pages.Signup(form))
		case errors.Is(err, service.ErrDuplicateIdentifier):
			form.Error = "Aadhaar already exists. Please login."
			ui.RenderStatus(w, r, http.StatusConflict, pages.Signup(form))
		default:
			slog.Error("signup failed", "error", err)
			form.Error = genericError
			ui.RenderStatus(w, r, http.StatusInternalServerError, pages.Signup(form))
		}
		return
	}

	slog.Info("citizen signed up", "account_id", account.ID)
	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

func (h *authHandler) OfficialLoginPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.OfficialLogin("", ""))
}

func (h *authHandler) OfficialLogin(w http.ResponseWriter, r *http.Request) {
	officialID := strings.TrimSpace(r.FormValue("official_id"))

	principal, err := h.authService.LoginOfficial(officialID, r.FormValue("password"))
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(string(model.KindOfficial), "failure").Inc()
		ui.RenderStatus(w, r, http.StatusUnauthorized, pages.OfficialLogin(officialID, "Invalid Official ID or Password"))
		return
	}

	err = h.authService.StartSession(w, principal)
	if err != nil {
		slog.Error("failed to start session", "error", err, "official_id", officialID)
		ui.RenderStatus(w, r, http.StatusInternalServerError, pages.OfficialLogin(officialID, genericError))
		return
	}

	metrics.LoginAttempts.WithLabelValues(string(model.KindOfficial), "success").Inc()
	slog.Info("official logged in", "official_id", officialID)
	http.Redirect(w, r, "/officials/dashboard", http.StatusSeeOther)
}

func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
