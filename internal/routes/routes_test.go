package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/resquick/portal/internal/app"
	"github.com/resquick/portal/internal/config"
	"github.com/resquick/portal/internal/db/dbtest"
	"github.com/resquick/portal/internal/model"
)

const assessmentReply = "```json\n" + `{"damage_percentage": 42.5, "reasoning": "Roof partially collapsed", "estimated_compensation": 63750, "recommendations": "Rebuild roof"}` + "\n```"

type fakeModel struct {
	reply string
	err   error
}

func (m *fakeModel) Generate(context.Context, string, []byte, string) (string, error) {
	return m.reply, m.err
}

type testServer struct {
	*httptest.Server
	app   *app.App
	model *fakeModel
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()

	hash, err := bcrypt.GenerateFromPassword([]byte("Official@01"), bcrypt.MinCost)
	require.NoError(t, err)
	officials := filepath.Join(dir, "officials.yaml")
	require.NoError(t, os.WriteFile(officials, []byte(fmt.Sprintf("officials:\n  \"19472003\": %q\n", hash)), 0600))

	content := filepath.Join(dir, "content")
	require.NoError(t, os.MkdirAll(filepath.Join(content, "help"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(content, "help", "getting-started.md"),
		[]byte("---\ntitle: Getting started\norder: 1\n---\n# How to apply\n"), 0644))

	cfg := &config.Config{
		AppName:            "ResQuick",
		AppEnv:             "development",
		AppURL:             "http://localhost",
		ContentPath:        content,
		DBDriver:           "sqlite",
		SessionSecret:      "test-secret",
		SessionExpiry:      time.Hour,
		OfficialsFile:      officials,
		LoginRatePerMinute: 1000,
		StorageDriver:      "local",
		StorageRoot:        filepath.Join(dir, "store"),
		UploadPrefix:       "uploads",
		MaxUploadSize:      32 << 20,
		CompensationBase:   150000,
	}

	model := &fakeModel{reply: assessmentReply}
	a, err := app.Assemble(cfg, dbtest.New(t), model)
	require.NoError(t, err)

	srv := httptest.NewServer(SetupRoutes(a))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, app: a, model: model}
}

// client is a browser-like session: it keeps cookies, sends the CSRF
// header on every non-GET request and does not follow redirects.
type client struct {
	t    *testing.T
	srv  *testServer
	http *http.Client
}

func (s *testServer) newClient(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	c := &client{t: t, srv: s, http: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}

	// Prime the CSRF cookie
	res := c.get("/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	return c
}

func (c *client) csrfToken() string {
	u, _ := url.Parse(c.srv.URL)
	for _, cookie := range c.http.Jar.Cookies(u) {
		if cookie.Name == "csrf_token" {
			return cookie.Value
		}
	}
	return ""
}

func (c *client) do(method, p string, body io.Reader, contentType string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.srv.URL+p, body)
	require.NoError(c.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", c.csrfToken())
	}
	res, err := c.http.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func (c *client) get(p string) *http.Response {
	return c.do(http.MethodGet, p, nil, "")
}

func (c *client) postForm(p string, form url.Values) *http.Response {
	return c.do(http.MethodPost, p, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (c *client) postJSON(p string) map[string]any {
	c.t.Helper()
	res := c.do(http.MethodPost, p, nil, "")
	return decode(c.t, res)
}

func decode(t *testing.T, res *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	out["status"] = res.StatusCode
	return out
}

func body(t *testing.T, res *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(b)
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{G: 180, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (c *client) submit(fields map[string]string, files map[string][]byte) map[string]any {
	c.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(c.t, w.WriteField(k, v))
	}
	for name, data := range files {
		part, err := w.CreateFormFile("evidence_files[]", name)
		require.NoError(c.t, err)
		_, err = part.Write(data)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, w.Close())

	return decode(c.t, c.do(http.MethodPost, "/applications", &buf, w.FormDataContentType()))
}

func (c *client) signupAndLogin(nationalID, name string) {
	c.t.Helper()
	form := url.Values{"aadhaar": {nationalID}, "name": {name}, "mobile": {"9876543210"}, "password": {"Relief@2024"}}
	res := c.postForm("/signup", form)
	require.Equal(c.t, http.StatusSeeOther, res.StatusCode)

	res = c.postForm("/login", url.Values{"aadhaar": {nationalID}, "password": {"Relief@2024"}})
	require.Equal(c.t, http.StatusSeeOther, res.StatusCode)
	require.Equal(c.t, "/dashboard", res.Header.Get("Location"))
}

var applicationFields = map[string]string{
	"name":           "Asha Devi",
	"gram_panchayat": "Gopalpur",
	"block":          "Puri Sadar",
	"police_station": "Sea Beach",
	"district":       "Puri",
	"state":          "Odisha",
	"latitude":       "19.8135",
	"longitude":      "85.8312",
}

func TestSignupAndLogin(t *testing.T) {
	srv := newTestServer(t)
	c := srv.newClient(t)

	form := url.Values{"aadhaar": {"123412341234"}, "name": {"Asha Devi"}, "mobile": {"9876543210"}, "password": {"Relief@2024"}}
	res := c.postForm("/signup", form)
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/login?registered=1", res.Header.Get("Location"))

	res = c.postForm("/signup", form)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Contains(t, body(t, res), "Aadhaar already exists")

	res = c.postForm("/signup", url.Values{"aadhaar": {"12"}, "name": {"X"}, "mobile": {"1"}, "password": {"short"}})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = c.postForm("/login", url.Values{"aadhaar": {"123412341234"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Contains(t, body(t, res), "Invalid Aadhaar or Password")

	res = c.postForm("/login", url.Values{"aadhaar": {"123412341234"}, "password": {"Relief@2024"}})
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/dashboard", res.Header.Get("Location"))

	res = c.get("/dashboard")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	page := body(t, res)
	assert.Contains(t, page, "Welcome, Asha Devi")
	assert.Contains(t, page, "123412341234")

	// Logged in users skip the guest pages
	res = c.get("/login")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)

	res = c.get("/logout")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res = c.get("/dashboard")
	assert.Equal(t, http.StatusOK, res.StatusCode, "a cross-site GET must not end the session")

	res = c.postForm("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	res = c.get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/login", res.Header.Get("Location"))
}

func TestCSRFRequired(t *testing.T) {
	srv := newTestServer(t)

	res, err := http.PostForm(srv.URL+"/login", url.Values{"aadhaar": {"123412341234"}, "password": {"x"}})
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestApplicationLifecycle(t *testing.T) {
	srv := newTestServer(t)
	citizen := srv.newClient(t)
	citizen.signupAndLogin("123412341234", "Asha Devi")

	out := citizen.submit(applicationFields, map[string][]byte{"roof.png": pngImage(t), "wall.png": pngImage(t)})
	require.Equal(t, true, out["success"], out)
	id := int64(out["app_id"].(float64))

	res := citizen.get("/applications")
	require.Equal(t, http.StatusOK, res.StatusCode)
	page := body(t, res)
	assert.Contains(t, page, fmt.Sprintf("#%d", id))
	assert.Contains(t, page, "Pending")

	out = citizen.postJSON(fmt.Sprintf("/applications/%d/analyze", id))
	require.Equal(t, true, out["success"], out)
	assert.Equal(t, "42.50%", out["damage"])
	assert.Equal(t, "₹ 63,750.00", out["compensation"])
	assert.Equal(t, float64(id), out["app_id"])

	res = citizen.get("/applications")
	page = body(t, res)
	assert.Contains(t, page, "Reviewed")
	assert.Contains(t, page, "Roof partially collapsed")

	// A failed re-assessment leaves the stored values
	srv.model.reply = "not json"
	out = citizen.postJSON(fmt.Sprintf("/applications/%d/analyze", id))
	assert.Equal(t, false, out["success"])
	assert.Equal(t, http.StatusInternalServerError, out["status"])
	assert.Contains(t, out["message"], "AI analysis failed: ")

	stored, err := srv.app.ApplicationService.View(model.OfficialPrincipal("19472003"), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReviewed, stored.Status)
	require.NotNil(t, stored.Assessment())
	assert.Equal(t, 42.5, stored.Assessment().DamagePercentage)
	require.Len(t, stored.Evidence, 2)

	res = citizen.get(fmt.Sprintf("/applications/%d/pdf", id))
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/pdf", res.Header.Get("Content-Type"))
	assert.Equal(t, fmt.Sprintf("inline; filename=application_receipt_%d.pdf", id), res.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(body(t, res), "%PDF"))

	evidenceURL := "/uploads/" + path.Base(stored.Evidence[0])
	res = citizen.get(evidenceURL)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))

	out = citizen.postJSON(fmt.Sprintf("/applications/%d/delete", id))
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "Application deleted successfully.", out["message"])

	res = citizen.get(evidenceURL)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	for _, p := range stored.Evidence {
		_, err := os.Stat(filepath.Join(srv.app.Cfg.StorageRoot, p))
		assert.True(t, os.IsNotExist(err), p)
	}

	res = citizen.get("/applications")
	assert.Contains(t, body(t, res), "No applications yet.")
}

func TestSubmissionRules(t *testing.T) {
	srv := newTestServer(t)

	guest := srv.newClient(t)
	out := guest.submit(applicationFields, nil)
	assert.Equal(t, http.StatusUnauthorized, out["status"])
	assert.Equal(t, false, out["success"])

	citizen := srv.newClient(t)
	citizen.signupAndLogin("123412341234", "Asha Devi")

	out = citizen.submit(applicationFields, map[string][]byte{"notes.png": []byte("plain text, not an image")})
	assert.Equal(t, http.StatusBadRequest, out["status"])

	out = citizen.submit(map[string]string{"name": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, out["status"])

	// No photos is accepted, but cannot be assessed
	out = citizen.submit(applicationFields, nil)
	require.Equal(t, true, out["success"], out)
	id := int64(out["app_id"].(float64))

	out = citizen.postJSON(fmt.Sprintf("/applications/%d/analyze", id))
	assert.Equal(t, http.StatusBadRequest, out["status"])
	assert.Equal(t, "No evidence images found for this application.", out["message"])

	out = citizen.postJSON("/applications/9999/analyze")
	assert.Equal(t, http.StatusNotFound, out["status"])
}

func TestOfficialAccess(t *testing.T) {
	srv := newTestServer(t)

	citizen := srv.newClient(t)
	citizen.signupAndLogin("123412341234", "Asha Devi")
	out := citizen.submit(applicationFields, map[string][]byte{"roof.png": pngImage(t)})
	require.Equal(t, true, out["success"], out)
	id := int64(out["app_id"].(float64))

	official := srv.newClient(t)
	res := official.postForm("/officials/login", url.Values{"official_id": {"19472003"}, "password": {"nope"}})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = official.postForm("/officials/login", url.Values{"official_id": {"19472003"}, "password": {"Official@01"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/officials/dashboard", res.Header.Get("Location"))

	res = official.get("/officials/dashboard")
	require.Equal(t, http.StatusOK, res.StatusCode)
	page := body(t, res)
	assert.Contains(t, page, fmt.Sprintf("#%d", id))
	assert.NotContains(t, page, "data-delete")

	res = official.get("/applications/new")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body(t, res), "<fieldset disabled>")

	res = official.get(fmt.Sprintf("/applications/%d/pdf", id))
	assert.Equal(t, http.StatusOK, res.StatusCode)

	out = official.postJSON(fmt.Sprintf("/applications/%d/delete", id))
	assert.Equal(t, http.StatusUnauthorized, out["status"])
	res = official.do(http.MethodDelete, fmt.Sprintf("/applications/%d", id), nil, "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	out = official.submit(applicationFields, nil)
	assert.Equal(t, http.StatusUnauthorized, out["status"])

	out = official.postJSON(fmt.Sprintf("/applications/%d/analyze", id))
	assert.Equal(t, true, out["success"], out)

	// Citizen pages stay closed to officials
	res = official.get("/applications")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
}

func TestOtherCitizenCannotTouchApplication(t *testing.T) {
	srv := newTestServer(t)

	owner := srv.newClient(t)
	owner.signupAndLogin("123412341234", "Asha Devi")
	out := owner.submit(applicationFields, map[string][]byte{"roof.png": pngImage(t)})
	require.Equal(t, true, out["success"], out)
	id := int64(out["app_id"].(float64))

	other := srv.newClient(t)
	other.signupAndLogin("567856785678", "Ravi Kumar")

	out = other.postJSON(fmt.Sprintf("/applications/%d/delete", id))
	assert.Equal(t, http.StatusNotFound, out["status"])
	assert.Equal(t, "Application not found or not authorized", out["message"])

	res := other.get(fmt.Sprintf("/applications/%d/pdf", id))
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/applications", res.Header.Get("Location"))

	res = other.get("/applications")
	assert.NotContains(t, body(t, res), fmt.Sprintf("#%d", id))

	stored, err := srv.app.ApplicationService.View(model.OfficialPrincipal("19472003"), id)
	require.NoError(t, err)
	evidenceURL := "/uploads/" + path.Base(stored.Evidence[0])

	res = other.get(evidenceURL)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = owner.get(evidenceURL)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	official := srv.newClient(t)
	res = official.postForm("/officials/login", url.Values{"official_id": {"19472003"}, "password": {"Official@01"}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	res = official.get(evidenceURL)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestPublicEndpoints(t *testing.T) {
	srv := newTestServer(t)
	c := srv.newClient(t)

	res := c.get("/healthz")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body(t, res))

	res = c.get("/help/getting-started")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body(t, res), "How to apply")

	res = c.get("/help/missing")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = c.get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body(t, res), "Page not found")

	res = c.get("/metrics")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body(t, res), "resquick_http_requests_total")

	res = c.get("/")
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))
	assert.Contains(t, res.Header.Get("Content-Security-Policy"), "'nonce-")

	// Evidence needs a session
	res = c.get("/uploads/anything.png")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
}
