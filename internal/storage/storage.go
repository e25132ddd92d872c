package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"inmobiliaria-portal/internal/config"
)

// Upload is one image payload taken from a multipart request
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Backend stores image blobs and serves back publicly reachable URLs.
// Save must refuse non-image payloads before writing anything.
type Backend interface {
	// Kind identifies the backend ("s3" or "local") for logs and health
	Kind() string
	// Save persists the blob under a name derived from the property id
	// and returns the public URL of the stored object
	Save(ctx context.Context, propertyID int64, up Upload) (string, error)
	// Delete removes the object behind a previously returned public URL
	Delete(ctx context.Context, publicURL string) error
	// List returns the public URLs of every stored object, for the
	// maintenance sweep
	List(ctx context.Context) ([]string, error)
}

// NewBackend picks the backend from configuration. S3 is preferred when
// fully configured; anything else falls back to local disk.
func NewBackend(cfg *config.StorageConfig) (Backend, error) {
	if cfg.Backend == "s3" && cfg.S3Configured() {
		return NewS3Backend(&cfg.S3)
	}
	return NewLocalBackend(cfg.Local.UploadsDir)
}

// IsImage reports whether the declared media type is an image type
func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// ValidPublicURL guards against malformed storage responses: only
// absolute http(s) URLs and root-relative paths may reach the database.
func ValidPublicURL(url string) bool {
	return strings.HasPrefix(url, "http://") ||
		strings.HasPrefix(url, "https://") ||
		strings.HasPrefix(url, "/")
}

// objectName builds a collision-resistant name for an upload:
// property id + timestamp + random suffix + original extension.
func objectName(propertyID int64, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	suffix := strings.Split(uuid.New().String(), "-")[0]
	return fmt.Sprintf("%d_%d_%s%s", propertyID, time.Now().UnixNano(), suffix, ext)
}

// ErrNotImage is returned when a payload's media type is not image/*
var ErrNotImage = fmt.Errorf("payload is not an image")
