package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStore is the upload collaborator consumed by the conductor. An
// implementation returns a publicly reachable URL for the stored bytes.
type ObjectStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// FileStore persists artifacts onto the local filesystem and serves
// them through the API's static file route. It stands in for an object
// storage service in development and test environments.
type FileStore struct {
	basePath      string
	publicBaseURL string
}

// NewFileStore initializes a FileStore rooted at basePath. Uploaded
// artifacts become reachable under publicBaseURL.
func NewFileStore(basePath, publicBaseURL string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{
		basePath:      basePath,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Upload writes the artifact under a date-partitioned key and returns
// its public URL.
func (s *FileStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("storage: empty artifact")
	}

	key := fmt.Sprintf("diagrams/%s/%s%s", time.Now().UTC().Format("2006/01/02"), uuid.NewString(), extensionFor(contentType))
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return s.publicBaseURL + "/" + cleanKey, nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "svg"):
		return ".svg"
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "jpeg"):
		return ".jpg"
	default:
		return ".bin"
	}
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}

var _ ObjectStore = (*FileStore)(nil)
