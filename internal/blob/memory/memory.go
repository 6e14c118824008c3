// Package memory implements blob.Store with an in-memory map, for tests and
// ephemeral runs.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmynk/flatearth/internal/blob"
)

var _ blob.Store = (*Store)(nil)

// Store keeps objects in memory.
type Store struct {
	mu      sync.RWMutex
	objects map[string]blob.Object
	baseURL string

	// failures makes the next Put calls fail; tests use it.
	failures int
}

// New creates an empty store whose URLs start with baseURL.
func New(baseURL string) *Store {
	return &Store{
		objects: make(map[string]blob.Object),
		baseURL: baseURL,
	}
}

// Put stores a copy of the object.
func (s *Store) Put(_ context.Context, obj blob.Object) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failures > 0 {
		s.failures--
		return "", fmt.Errorf("put %s: simulated failure", obj.Name)
	}

	obj.Data = bytes.Clone(obj.Data)
	s.objects[obj.Name] = obj
	return blob.URL(s.baseURL, obj.Name), nil
}

// Get returns a stored object.
func (s *Store) Get(name string) (blob.Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[name]
	return obj, ok
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// FailNext makes the next n Put calls fail.
func (s *Store) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
}

// Handler serves stored objects under /media/.
func (s *Store) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		obj, ok := s.Get(strings.TrimPrefix(r.URL.Path, "/media/"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		if obj.ContentType != "" {
			w.Header().Set("Content-Type", obj.ContentType)
		}
		http.ServeContent(w, r, obj.Name, time.Time{}, bytes.NewReader(obj.Data))
	})
}
