package validation

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"
)

// ErrInvalidFile wraps every rejected upload so callers can map it to a 400.
var ErrInvalidFile = errors.New("invalid file")

// PhotoPolicy is what an evidence photo must satisfy. Extensions maps each
// accepted extension to the image format its content must decode as.
type PhotoPolicy struct {
	Extensions map[string]string
	MaxBytes   int64
	MaxPixels  int
}

// EvidencePhotos accepts phone camera photos. The pixel cap bounds the memory
// the report generator needs to decode one.
var EvidencePhotos = PhotoPolicy{
	Extensions: map[string]string{
		".jpg":  "jpeg",
		".jpeg": "jpeg",
		".png":  "png",
		".webp": "webp",
	},
	MaxBytes:  10 << 20,
	MaxPixels: 50_000_000,
}

// Photo describes an accepted upload.
type Photo struct {
	Format string
	Width  int
	Height int
}

// ValidatePhoto checks size, extension and the decoded image header of an
// upload. Only the header is read; the file is rewound afterwards.
func ValidatePhoto(header *multipart.FileHeader, policy PhotoPolicy) (Photo, error) {
	photo, err := checkPhoto(header, policy)
	if err != nil {
		return Photo{}, fmt.Errorf("%w: %s: %v", ErrInvalidFile, header.Filename, err)
	}
	return photo, nil
}

func checkPhoto(header *multipart.FileHeader, policy PhotoPolicy) (Photo, error) {
	if header.Size > policy.MaxBytes {
		return Photo{}, fmt.Errorf("file too large: maximum size is %d MB", policy.MaxBytes>>20)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	want, ok := policy.Extensions[ext]
	if !ok {
		return Photo{}, fmt.Errorf("invalid file extension: %q", ext)
	}

	file, err := header.Open()
	if err != nil {
		return Photo{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return Photo{}, fmt.Errorf("not a supported image: %v", err)
	}
	if format != want {
		return Photo{}, fmt.Errorf("content is %s but the name says %s", format, ext)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Photo{}, errors.New("image has no pixels")
	}
	if cfg.Width*cfg.Height > policy.MaxPixels {
		return Photo{}, fmt.Errorf("image is too large: %dx%d", cfg.Width, cfg.Height)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return Photo{}, fmt.Errorf("failed to rewind file: %w", err)
	}

	return Photo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// DetectImageType sniffs the MIME type of stored image bytes.
func DetectImageType(data []byte) string {
	return http.DetectContentType(data)
}
