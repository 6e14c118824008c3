// Package blob stores review photos and hands back durable retrieval URLs.
package blob

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// Object is a blob to be written.
type Object struct {
	Name        string
	ContentType string
	Data        []byte
}

// Store defines blob storage operations.
type Store interface {
	// Put writes the object and returns the URL it can be fetched from.
	// Writing an existing name replaces it.
	Put(ctx context.Context, obj Object) (string, error)

	// Handler serves stored objects under the URL prefix Put hands out.
	Handler() http.Handler
}

// ObjectName derives a per-submission name from the upload time and the
// original filename. Two uploads of the same filename in the same millisecond
// collide; names are advisory, not guaranteed unique.
func ObjectName(at time.Time, filename string) string {
	base := filepath.Base(filepath.ToSlash(filename))
	if base == "." || base == "/" {
		base = "upload"
	}
	return fmt.Sprintf("%d_%s", at.UnixMilli(), sanitize(base))
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// URL joins a base URL and an object name under the /media/ prefix.
func URL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/media/" + name
}
