package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/resquick/portal/internal/ctxkeys"
	"github.com/resquick/portal/internal/service"
	"github.com/resquick/portal/internal/storage"
	"github.com/resquick/portal/internal/validation"
)

type EvidenceHandler struct {
	applicationService *service.ApplicationService
	evidenceService    *service.EvidenceService
}

func NewEvidenceHandler(applicationService *service.ApplicationService, evidenceService *service.EvidenceService) *EvidenceHandler {
	return &EvidenceHandler{
		applicationService: applicationService,
		evidenceService:    evidenceService,
	}
}

// Serve writes a stored evidence photo to an official or to the citizen
// whose application references it. Everyone else gets 404.
func (h *EvidenceHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	storagePath := h.evidenceService.Path(name)

	visible, err := h.applicationService.EvidenceVisible(ctxkeys.Principal(r.Context()), storagePath)
	if err != nil {
		slog.Error("failed to check evidence access", "error", err, "name", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !visible {
		http.NotFound(w, r)
		return
	}

	data, err := h.evidenceService.ReadFile(storagePath)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrInvalidPath) {
			slog.Error("failed to read evidence", "error", err, "name", name)
		}
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", validation.DetectImageType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, err = w.Write(data)
	if err != nil {
		slog.Warn("failed to write evidence", "error", err, "name", name)
	}
}
