package handler

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/resquick/portal/internal/assessment"
	"github.com/resquick/portal/internal/ctxkeys"
	"github.com/resquick/portal/internal/report"
	"github.com/resquick/portal/internal/service"
	"github.com/resquick/portal/internal/ui"
	"github.com/resquick/portal/internal/ui/pages"
	"github.com/resquick/portal/internal/validation"
)

// multipartMemory is how much of a submission is buffered in memory; the
// rest spills to temp files. Total size is capped by MaxBodySize.
const multipartMemory = 8 << 20

type ApplicationHandler struct {
	applicationService *service.ApplicationService
	evidenceService    *service.EvidenceService
	reports            *report.Generator
}

func NewApplicationHandler(
	applicationService *service.ApplicationService,
	evidenceService *service.EvidenceService,
	reports *report.Generator,
) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: applicationService,
		evidenceService:    evidenceService,
		reports:            reports,
	}
}

func (h *ApplicationHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	account := ctxkeys.Account(r.Context())
	if account == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	ui.Render(w, r, pages.CitizenDashboard(account))
}

// MyApplications lists the citizen's own applications, newest first.
func (h *ApplicationHandler) MyApplications(w http.ResponseWriter, r *http.Request) {
	principal := ctxkeys.Principal(r.Context())
	account := ctxkeys.Account(r.Context())

	apps, err := h.applicationService.List(principal)
	if err != nil {
		slog.Error("failed to list applications", "error", err, "principal", principal.ID)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	ui.Render(w, r, pages.MyApplications(account, pages.NewApplicationViews(apps, h.evidenceService.URL)))
}

// OfficialsDashboard lists every application.
func (h *ApplicationHandler) OfficialsDashboard(w http.ResponseWriter, r *http.Request) {
	principal := ctxkeys.Principal(r.Context())

	apps, err := h.applicationService.List(principal)
	if err != nil {
		slog.Error("failed to list applications", "error", err, "principal", principal.ID)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	ui.Render(w, r, pages.OfficialsDashboard(principal.ID, pages.NewApplicationViews(apps, h.evidenceService.URL)))
}

func (h *ApplicationHandler) NewPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.ApplicationForm(ctxkeys.Principal(r.Context()).IsOfficial()))
}

// Submit accepts the multipart application form with repeatable evidence_files[].
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	err := r.ParseMultipartForm(multipartMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(w, http.StatusRequestEntityTooLarge, "Upload too large.")
			return
		}
		jsonError(w, http.StatusBadRequest, "Could not read the submitted form.")
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	in := service.SubmissionInput{
		Name:          r.FormValue("name"),
		GramPanchayat: r.FormValue("gram_panchayat"),
		Block:         r.FormValue("block"),
		PoliceStation: r.FormValue("police_station"),
		District:      r.FormValue("district"),
		State:         r.FormValue("state"),
		Latitude:      r.FormValue("latitude"),
		Longitude:     r.FormValue("longitude"),
	}

	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["evidence_files[]"]
	}

	principal := ctxkeys.Principal(r.Context())
	app, err := h.applicationService.Submit(principal, in, files)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCitizenOnly):
			jsonError(w, http.StatusUnauthorized, "Authentication error. Only users can submit applications.")
		case errors.Is(err, service.ErrInvalidInput):
			jsonError(w, http.StatusBadRequest, inputMessage(err))
		case errors.Is(err, validation.ErrInvalidFile):
			jsonError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("application submission failed", "error", err, "principal", principal.ID)
			jsonError(w, http.StatusInternalServerError, "An internal server error occurred.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "app_id": app.ID})
}

// PDF streams the application report inline.
func (h *ApplicationHandler) PDF(w http.ResponseWriter, r *http.Request) {
	principal := ctxkeys.Principal(r.Context())

	id, ok := pathID(r)
	if !ok {
		h.notVisible(w, r)
		return
	}

	app, err := h.applicationService.View(principal, id)
	if err != nil {
		if !errors.Is(err, service.ErrNotFoundOrForbidden) {
			slog.Error("failed to load application", "error", err, "app_id", id)
		}
		h.notVisible(w, r)
		return
	}

	var buf bytes.Buffer
	err = h.reports.Generate(&buf, app)
	if err != nil {
		slog.Error("failed to generate report", "error", err, "app_id", id)
		http.Error(w, "could not generate report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s", report.Filename(id)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, err = buf.WriteTo(w)
	if err != nil {
		slog.Warn("failed to write report", "error", err, "app_id", id)
	}
}

// notVisible sends the caller back to its listing without revealing whether
// the application exists.
func (h *ApplicationHandler) notVisible(w http.ResponseWriter, r *http.Request) {
	if ctxkeys.Principal(r.Context()).IsOfficial() {
		http.Redirect(w, r, "/officials/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/applications", http.StatusSeeOther)
}

func (h *ApplicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := ctxkeys.Principal(r.Context())

	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusNotFound, "Application not found or not authorized")
		return
	}

	err := h.applicationService.Delete(principal, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFoundOrForbidden) {
			jsonError(w, http.StatusNotFound, "Application not found or not authorized")
			return
		}
		slog.Error("failed to delete application", "error", err, "app_id", id)
		jsonError(w, http.StatusInternalServerError, "An internal error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{Success: true, Message: "Application deleted successfully."})
}

// Analyze runs the AI assessment on the application's first photo.
func (h *ApplicationHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusNotFound, "Application not found.")
		return
	}

	app, err := h.applicationService.Assess(r.Context(), id)
	if err != nil {
		var analysisErr *assessment.AnalysisError
		switch {
		case errors.Is(err, service.ErrNotFoundOrForbidden):
			jsonError(w, http.StatusNotFound, "Application not found.")
		case errors.Is(err, service.ErrNoEvidence):
			jsonError(w, http.StatusBadRequest, "No evidence images found for this application.")
		case errors.Is(err, service.ErrEvidenceMissing):
			jsonError(w, http.StatusInternalServerError, "Image file not found on server.")
		case errors.As(err, &analysisErr):
			jsonError(w, http.StatusInternalServerError, "AI analysis failed: "+analysisErr.Err.Error())
		default:
			slog.Error("assessment failed", "error", err, "app_id", id)
			jsonError(w, http.StatusInternalServerError, "An internal error occurred.")
		}
		return
	}

	a := app.Assessment()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"damage":       report.Percent(a.DamagePercentage),
		"compensation": report.Currency(report.RupeePrefix, a.CompensationAmount),
		"app_id":       app.ID,
	})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
