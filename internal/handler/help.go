package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/resquick/portal/internal/service"
	"github.com/resquick/portal/internal/ui"
	"github.com/resquick/portal/internal/ui/pages"
)

type HelpHandler struct {
	helpService *service.HelpService
}

func NewHelpHandler(helpService *service.HelpService) *HelpHandler {
	return &HelpHandler{helpService: helpService}
}

func (h *HelpHandler) ShowPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.helpService.Page(r.PathValue("page"))
	if err != nil {
		if !errors.Is(err, service.ErrHelpPageNotFound) {
			slog.Error("failed to load help page", "error", err, "page", r.PathValue("page"))
		}
		ui.RenderStatus(w, r, http.StatusNotFound, pages.NotFound())
		return
	}

	var outline []pages.HelpSection
	for _, h := range page.Outline {
		outline = append(outline, pages.HelpSection{ID: h.ID, Title: h.Text})
	}

	var index []pages.HelpLink
	for _, p := range h.helpService.Pages() {
		if p.Slug == page.Slug {
			continue
		}
		index = append(index, pages.HelpLink{Title: p.Title, Slug: p.Slug})
	}

	// Help content is rendered from markdown files shipped with the app
	ui.Render(w, r, pages.Help(page.Title, template.HTML(page.Content), outline, index))
}
