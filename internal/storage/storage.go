package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	cfg "github.com/resquick/portal/internal/config"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrInvalidPath = errors.New("invalid storage path")
)

// Storage defines the interface for evidence blob operations
type Storage interface {
	// Save stores a file at the given path
	Save(path string, file io.Reader) error

	// Open returns a reader for the file at path, ErrNotFound if absent
	Open(path string) (io.ReadCloser, error)

	// Delete removes a file at the given path; a missing file is not an error
	Delete(path string) error

	// URL returns the URL the file is served from
	URL(path string) string
}

// New creates the storage backend selected by STORAGE_DRIVER
func New(c *cfg.Config) (Storage, error) {
	switch c.StorageDriver {
	case "", "local":
		slog.Info("initializing local storage", "root", c.StorageRoot)
		return NewLocalStorage(c.StorageRoot, "/")
	case "s3":
		slog.Info("initializing S3 storage",
			"bucket", c.S3Bucket,
			"region", c.S3Region,
			"endpoint", c.S3Endpoint,
		)
		return NewS3Storage(S3Config{
			Region:    c.S3Region,
			Bucket:    c.S3Bucket,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			Endpoint:  c.S3Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
}
