package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/resquick/portal/internal/storage"
	"github.com/resquick/portal/internal/validation"
)

// EvidenceService stores the photos attached to applications.
type EvidenceService struct {
	storage storage.Storage
	prefix  string
	now     func() time.Time
}

func NewEvidenceService(storage storage.Storage, prefix string) *EvidenceService {
	if prefix == "" {
		prefix = "uploads"
	}
	return &EvidenceService{
		storage: storage,
		prefix:  strings.Trim(prefix, "/"),
		now:     time.Now,
	}
}

// Prefix is the path segment stored evidence lives under.
func (s *EvidenceService) Prefix() string {
	return s.prefix
}

// Store validates and saves each non-empty upload, returning stored paths in
// client order. On failure the files already saved by this call are removed.
func (s *EvidenceService) Store(files []*multipart.FileHeader) ([]string, error) {
	var stored []string

	for _, header := range files {
		if header == nil || header.Filename == "" {
			continue
		}

		p, err := s.storeOne(header, len(stored))
		if err != nil {
			s.Delete(stored)
			return nil, err
		}
		stored = append(stored, p)
	}

	return stored, nil
}

func (s *EvidenceService) storeOne(header *multipart.FileHeader, index int) (string, error) {
	photo, err := validation.ValidatePhoto(header, validation.EvidencePhotos)
	if err != nil {
		return "", err
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = file.Close() }()

	storagePath := path.Join(s.prefix, s.fileName(header.Filename, index))

	err = s.storage.Save(storagePath, file)
	if err != nil {
		return "", fmt.Errorf("failed to save evidence: %w", err)
	}

	slog.Debug("evidence stored", "path", storagePath, "format", photo.Format, "width", photo.Width, "height", photo.Height)
	return storagePath, nil
}

// fileName prefixes the client's base name with a microsecond timestamp and
// the upload's position in its submission, so repeated names such as
// "image.jpg" stay distinct. Commas are replaced because stored paths are
// comma-joined.
func (s *EvidenceService) fileName(original string, index int) string {
	now := s.now()
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.NewReplacer(",", "_", " ", "_", "/", "_").Replace(base)
	return fmt.Sprintf("%s%06d_%d_%s", now.Format("20060102150405"), now.Nanosecond()/1000, index, base)
}

// Path maps a served file name back to its storage path.
func (s *EvidenceService) Path(name string) string {
	return path.Join(s.prefix, name)
}

// Open returns a reader for a stored evidence file.
func (s *EvidenceService) Open(p string) (io.ReadCloser, error) {
	return s.storage.Open(p)
}

// ReadFile reads a stored evidence file fully.
func (s *EvidenceService) ReadFile(p string) ([]byte, error) {
	rc, err := s.storage.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// URL returns where a browser can fetch the evidence file.
func (s *EvidenceService) URL(p string) string {
	return s.storage.URL(p)
}

// Delete removes the files best-effort. Missing files are ignored, other
// failures are logged.
func (s *EvidenceService) Delete(paths []string) {
	for _, p := range paths {
		err := s.storage.Delete(p)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			slog.Error("failed to delete evidence from storage", "error", err, "path", p)
		}
	}
}
