package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"inmobiliaria-portal/internal/logger"
)

// LocalBackend writes images to a directory on disk and serves
// root-relative URLs of the form /uploads/<name>. The directory itself
// is exposed as a static route by the HTTP server.
type LocalBackend struct {
	dir string
}

// NewLocalBackend ensures the uploads directory exists
func NewLocalBackend(dir string) (*LocalBackend, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &LocalBackend{dir: dir}, nil
}

// Kind identifies the backend
func (b *LocalBackend) Kind() string {
	return "local"
}

// Dir returns the directory served under /uploads
func (b *LocalBackend) Dir() string {
	return b.dir
}

// Save writes the blob to the uploads directory
func (b *LocalBackend) Save(_ context.Context, propertyID int64, up Upload) (string, error) {
	if !IsImage(up.ContentType) {
		return "", ErrNotImage
	}

	name := objectName(propertyID, up.Filename)
	path := filepath.Join(b.dir, name)

	if err := os.WriteFile(path, up.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	logger.Log.Debugf("Storage: wrote %s (%d bytes)", path, len(up.Data))
	return "/uploads/" + name, nil
}

// List returns /uploads URLs for every file currently on disk
func (b *LocalBackend) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads directory: %w", err)
	}

	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		urls = append(urls, "/uploads/"+e.Name())
	}
	return urls, nil
}

// Delete removes the file behind a previously returned /uploads URL.
// The name is taken from the URL tail only, so a crafted URL cannot
// escape the uploads directory.
func (b *LocalBackend) Delete(_ context.Context, publicURL string) error {
	if !strings.HasPrefix(publicURL, "/uploads/") {
		return fmt.Errorf("url %q is not a local upload", publicURL)
	}
	name := filepath.Base(strings.TrimPrefix(publicURL, "/uploads/"))
	if name == "" || name == "." || name == "/" {
		return fmt.Errorf("url %q has no file name", publicURL)
	}

	if err := os.Remove(filepath.Join(b.dir, name)); err != nil {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}
