// Package pages holds the server-rendered views. Each page is an
// html/template file rendered inside the shared layout and exposed as a
// templ.Component so handlers render everything through ui.Render.
package pages

import (
	"context"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/a-h/templ"

	"github.com/resquick/portal/internal/ctxkeys"
	"github.com/resquick/portal/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = mustParse()

var funcs = template.FuncMap{
	"lower": strings.ToLower,
}

func mustParse() map[string]*template.Template {
	base := template.Must(template.New("base").Funcs(funcs).ParseFS(templateFS,
		"templates/layout.html",
		"templates/partials.html",
	))

	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		panic(err)
	}

	out := make(map[string]*template.Template)
	for _, name := range names {
		file := path.Base(name)
		if file == "layout.html" || file == "partials.html" {
			continue
		}
		t := template.Must(base.Clone())
		template.Must(t.ParseFS(templateFS, name))
		out[strings.TrimSuffix(file, ".html")] = t
	}
	return out
}

// Layout carries what every page needs from the request context.
type Layout struct {
	Title     string
	AppName   string
	CSRF      string
	Nonce     string
	Path      string
	Principal *model.Principal
}

func newLayout(ctx context.Context, title string) Layout {
	l := Layout{
		Title:     title,
		AppName:   "ResQuick",
		CSRF:      ctxkeys.CSRFToken(ctx),
		Nonce:     templ.GetNonce(ctx),
		Path:      ctxkeys.URLPath(ctx),
		Principal: ctxkeys.Principal(ctx),
	}
	if cfg := ctxkeys.Config(ctx); cfg != nil && cfg.AppName != "" {
		l.AppName = cfg.AppName
	}
	return l
}

// render executes the named page within the layout. fill receives the
// request's layout and returns the page data embedding it.
func render(name, title string, fill func(Layout) any) templ.Component {
	t, ok := templates[name]
	if !ok {
		panic("pages: unknown template " + name)
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return templ.FromGoHTML(t.Lookup("layout"), fill(newLayout(ctx, title))).Render(ctx, w)
	})
}

type messagePage struct {
	Layout
	Error  string
	Notice string
}

func LoginOption() templ.Component {
	return render("login_option", "Welcome", func(l Layout) any {
		return messagePage{Layout: l}
	})
}

// LoginForm is the citizen login page state.
type LoginForm struct {
	NationalID string
	Error      string
	Notice     string
}

func CitizenLogin(form LoginForm) templ.Component {
	return render("login", "Citizen Login", func(l Layout) any {
		return struct {
			Layout
			LoginForm
		}{l, form}
	})
}

// SignupForm echoes the submitted values back on error. The password never is.
type SignupForm struct {
	NationalID string
	Name       string
	Mobile     string
	Error      string
}

func Signup(form SignupForm) templ.Component {
	return render("signup", "Sign Up", func(l Layout) any {
		return struct {
			Layout
			SignupForm
		}{l, form}
	})
}

func OfficialLogin(officialID, errMsg string) templ.Component {
	return render("officials_login", "Officials Login", func(l Layout) any {
		return struct {
			Layout
			OfficialID string
			Error      string
		}{l, officialID, errMsg}
	})
}

func CitizenDashboard(account *model.Account) templ.Component {
	return render("dashboard", "Dashboard", func(l Layout) any {
		return struct {
			Layout
			Account *model.Account
		}{l, account}
	})
}

// ApplicationForm renders the submission form. Officials see it read-only.
func ApplicationForm(readOnly bool) templ.Component {
	return render("application_form", "New Application", func(l Layout) any {
		return struct {
			Layout
			ReadOnly bool
		}{l, readOnly}
	})
}

func MyApplications(account *model.Account, apps []ApplicationView) templ.Component {
	return render("applications", "My Applications", func(l Layout) any {
		return struct {
			Layout
			Account      *model.Account
			Applications []ApplicationView
		}{l, account, apps}
	})
}

func OfficialsDashboard(officialID string, apps []ApplicationView) templ.Component {
	return render("officials_dashboard", "Officials Dashboard", func(l Layout) any {
		// Account stays nil: officials never get delete buttons
		return struct {
			Layout
			Account      *model.Account
			OfficialID   string
			Applications []ApplicationView
		}{l, nil, officialID, apps}
	})
}

// HelpLink is an entry of the help index.
type HelpLink struct {
	Title string
	Slug  string
}

// HelpSection is a heading of the current help page.
type HelpSection struct {
	ID    string
	Title string
}

func Help(title string, content template.HTML, outline []HelpSection, index []HelpLink) templ.Component {
	return render("help", title, func(l Layout) any {
		return struct {
			Layout
			Content template.HTML
			Outline []HelpSection
			Index   []HelpLink
		}{l, content, outline, index}
	})
}

func NotFound() templ.Component {
	return render("not_found", "Page Not Found", func(l Layout) any {
		return messagePage{Layout: l}
	})
}
