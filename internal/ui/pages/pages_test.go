package pages

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resquick/portal/internal/ctxkeys"
	"github.com/resquick/portal/internal/model"
)

func renderString(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

func TestPagesRender(t *testing.T) {
	account := &model.Account{ID: 1, NationalID: "123412341234", Name: "Asha Devi"}
	citizen := ctxkeys.WithPrincipal(context.Background(), model.CitizenPrincipal(1))
	official := ctxkeys.WithPrincipal(context.Background(), model.OfficialPrincipal("19472003"))

	tests := []struct {
		name string
		ctx  context.Context
		c    templ.Component
		want string
	}{
		{"login option", context.Background(), LoginOption(), "Officials Login"},
		{"citizen login", context.Background(), CitizenLogin(LoginForm{Error: "Invalid Aadhaar or Password"}), "Invalid Aadhaar or Password"},
		{"signup", context.Background(), Signup(SignupForm{Name: "Asha"}), `value="Asha"`},
		{"officials login", context.Background(), OfficialLogin("19472003", ""), `value="19472003"`},
		{"dashboard", citizen, CitizenDashboard(account), "Welcome, Asha Devi"},
		{"logout is a form post", citizen, CitizenDashboard(account), `action="/logout"`},
		{"form for citizen", citizen, ApplicationForm(false), `name="evidence_files[]"`},
		{"form for official", official, ApplicationForm(true), "<fieldset disabled>"},
		{"my applications", citizen, MyApplications(account, nil), "No applications yet."},
		{"officials dashboard", official, OfficialsDashboard("19472003", nil), "official 19472003"},
		{"help", context.Background(), Help("Getting started", "<p>Hi</p>", nil, []HelpLink{{"Evidence", "evidence"}}), `href="/help/evidence"`},
		{"help outline", context.Background(), Help("Evidence", "<p>Hi</p>", []HelpSection{{"formats", "Formats"}}, nil), `href="#formats"`},
		{"not found", context.Background(), NotFound(), "Page not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, renderString(t, tt.ctx, tt.c), tt.want)
		})
	}
}

func TestLayoutCarriesTokenAndNonce(t *testing.T) {
	ctx := ctxkeys.WithCSRFToken(context.Background(), "tok123")
	ctx = templ.WithNonce(ctx, "n0nce")

	out := renderString(t, ctx, CitizenLogin(LoginForm{}))
	assert.Contains(t, out, `<meta name="csrf-token" content="tok123">`)
	assert.Contains(t, out, `name="csrf_token" value="tok123"`)
	assert.Contains(t, out, `<script nonce="n0nce">`)
}

func TestPagesEscapeUserInput(t *testing.T) {
	out := renderString(t, context.Background(), Signup(SignupForm{Name: `<script>alert(1)</script>`}))
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestApplicationTableRows(t *testing.T) {
	damage, comp, reasoning, recs := 42.5, 63750.0, "Roof collapsed", "Rebuild roof"
	apps := []*model.Application{
		{
			ID:                 2,
			Name:               "Asha Devi",
			District:           "Puri",
			State:              "Odisha",
			Status:             model.StatusReviewed,
			SubmittedAt:        time.Date(2024, 7, 1, 10, 30, 0, 0, time.UTC),
			Evidence:           model.EvidenceList{"uploads/a.png"},
			DamagePercentage:   &damage,
			CompensationAmount: &comp,
			Reasoning:          &reasoning,
			Recommendations:    &recs,
		},
		{ID: 1, Name: "Asha Devi", Status: model.StatusPending},
	}
	views := NewApplicationViews(apps, func(p string) string { return "/" + p })

	citizen := ctxkeys.WithPrincipal(context.Background(), model.CitizenPrincipal(1))
	out := renderString(t, citizen, MyApplications(&model.Account{ID: 1, Name: "Asha Devi"}, views))

	assert.Contains(t, out, "42.50%")
	assert.Contains(t, out, "₹ 63,750.00")
	assert.Contains(t, out, `href="/uploads/a.png"`)
	assert.Contains(t, out, `data-delete="2"`)
	assert.Contains(t, out, "Roof collapsed")
	assert.Less(t, bytes.Index([]byte(out), []byte("#2")), bytes.Index([]byte(out), []byte("#1")))

	official := ctxkeys.WithPrincipal(context.Background(), model.OfficialPrincipal("19472003"))
	out = renderString(t, official, OfficialsDashboard("19472003", views))
	assert.Contains(t, out, `data-analyze="1"`)
	assert.NotContains(t, out, "data-delete")
}

func TestNewApplicationViewPending(t *testing.T) {
	v := NewApplicationView(&model.Application{ID: 5, Status: model.StatusPending, Latitude: "19.8", Longitude: "85.8"}, nil)
	assert.Equal(t, "N/A", v.Damage)
	assert.Equal(t, "N/A", v.Compensation)
	assert.Equal(t, "19.8, 85.8", v.Coordinates)
	assert.False(t, v.Reviewed)
	assert.Empty(t, v.Evidence)
}
