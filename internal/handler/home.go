package handler

import (
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/resquick/portal/internal/db"
	"github.com/resquick/portal/internal/ui"
	"github.com/resquick/portal/internal/ui/pages"
)

type HomeHandler struct {
	db *sqlx.DB
}

func NewHomeHandler(database *sqlx.DB) *HomeHandler {
	return &HomeHandler{db: database}
}

func (h *HomeHandler) NotFoundPage(w http.ResponseWriter, r *http.Request) {
	ui.RenderStatus(w, r, http.StatusNotFound, pages.NotFound())
}

// Health reports whether the database answers a ping.
func (h *HomeHandler) Health(w http.ResponseWriter, r *http.Request) {
	err := db.Ping(r.Context(), h.db)
	if err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
