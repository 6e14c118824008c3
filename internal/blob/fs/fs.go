// Package fs implements blob.Store on a local directory.
package fs

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/mmynk/flatearth/internal/blob"
)

var _ blob.Store = (*Store)(nil)

// Store writes objects as files under dir.
type Store struct {
	dir     string
	baseURL string
}

// New creates dir if needed.
func New(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &Store{dir: dir, baseURL: baseURL}, nil
}

// Put writes the object through a temp file and rename, so readers never see
// a partial file.
func (s *Store) Put(ctx context.Context, obj blob.Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if obj.Name == "" || obj.Name != filepath.Base(obj.Name) {
		return "", fmt.Errorf("invalid object name %q", obj.Name)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(obj.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, obj.Name)); err != nil {
		return "", fmt.Errorf("commit object: %w", err)
	}

	return blob.URL(s.baseURL, obj.Name), nil
}

// Handler serves the directory under /media/.
func (s *Store) Handler() http.Handler {
	return http.StripPrefix("/media/", http.FileServer(http.Dir(s.dir)))
}
