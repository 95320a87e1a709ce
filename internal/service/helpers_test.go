package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/resquick/portal/internal/assessment"
	"github.com/resquick/portal/internal/db/dbtest"
	"github.com/resquick/portal/internal/repository"
	"github.com/resquick/portal/internal/storage"
)

type upload struct {
	name    string
	content []byte
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fileHeaders(t *testing.T, uploads ...upload) []*multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, u := range uploads {
		part, err := w.CreateFormFile("evidence_files[]", u.name)
		require.NoError(t, err)
		_, err = part.Write(u.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(8 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	return form.File["evidence_files[]"]
}

type stubModel struct {
	reply string
	err   error
	calls int
}

func (m *stubModel) Generate(context.Context, string, []byte, string) (string, error) {
	m.calls++
	return m.reply, m.err
}

type env struct {
	accounts repository.AccountRepository
	apps     repository.ApplicationRepository
	store    *storage.LocalStorage
	root     string
	seq      int
	evidence *EvidenceService
	model    *stubModel
	auth     *AuthService
	service  *ApplicationService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	conn := dbtest.New(t)
	root := t.TempDir()
	store, err := storage.NewLocalStorage(root, "/")
	require.NoError(t, err)

	e := &env{
		accounts: repository.NewAccountRepository(conn),
		apps:     repository.NewApplicationRepository(conn),
		store:    store,
		root:     root,
		model:    &stubModel{},
	}

	officials := NewHashedCredentials(map[string]string{"19472003": mustHash(t, "Official@01")})
	e.auth = NewAuthService(e.accounts, officials, "test-secret", false, time.Hour)
	e.evidence = NewEvidenceService(store, "uploads")
	e.service = NewApplicationService(e.apps, e.evidence, assessment.NewAnalyzer(e.model, 150000))
	return e
}

func mustHash(t *testing.T, secret string) string {
	t.Helper()
	hash, err := (&AuthService{}).HashPassword(secret)
	require.NoError(t, err)
	return hash
}
