package pages

import (
	"path"

	"github.com/resquick/portal/internal/model"
	"github.com/resquick/portal/internal/report"
)

// EvidenceLink is one stored photo as shown in listings.
type EvidenceLink struct {
	Name string
	URL  string
}

// ApplicationView is an application with its display strings precomputed.
type ApplicationView struct {
	ID              int64
	Name            string
	Location        string
	Coordinates     string
	Submitted       string
	Status          string
	Reviewed        bool
	Damage          string
	Compensation    string
	Reasoning       string
	Recommendations string
	Evidence        []EvidenceLink
}

// NewApplicationView formats app for display. url maps a stored evidence
// path to where the browser fetches it.
func NewApplicationView(app *model.Application, url func(string) string) ApplicationView {
	v := ApplicationView{
		ID:           app.ID,
		Name:         app.Name,
		Location:     joinNonEmpty(app.GramPanchayat, app.Block, app.PoliceStation, app.District, app.State),
		Coordinates:  joinNonEmpty(app.Latitude, app.Longitude),
		Status:       app.Status,
		Reviewed:     app.IsReviewed(),
		Damage:       report.Placeholder,
		Compensation: report.Placeholder,
	}

	if !app.SubmittedAt.IsZero() {
		v.Submitted = app.SubmittedAt.Format("2006-01-02 15:04")
	}

	if a := app.Assessment(); a != nil {
		v.Damage = report.Percent(a.DamagePercentage)
		v.Compensation = report.Currency(report.RupeePrefix, a.CompensationAmount)
		v.Reasoning = a.Reasoning
		v.Recommendations = a.Recommendations
	}

	for _, p := range app.Evidence {
		v.Evidence = append(v.Evidence, EvidenceLink{Name: path.Base(p), URL: url(p)})
	}

	return v
}

// NewApplicationViews formats a listing, keeping its order.
func NewApplicationViews(apps []*model.Application, url func(string) string) []ApplicationView {
	views := make([]ApplicationView, 0, len(apps))
	for _, app := range apps {
		views = append(views, NewApplicationView(app, url))
	}
	return views
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += p
	}
	return out
}
