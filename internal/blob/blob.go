// Package blob stores uploaded objects by key.
package blob

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrExists   = errors.New("object already exists")
	ErrNotFound = errors.New("object not found")
	ErrBadKey   = errors.New("invalid object key")
)

// Store is a write-once object store. Put never overwrites an existing key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Close() error
}

// CleanKey validates a slash separated object key and returns it in canonical form.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", errors.Wrapf(ErrBadKey, "%q", key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.Wrapf(ErrBadKey, "%q", key)
	}
	return cleaned, nil
}

// ContentTypeFor guesses a content type from the key's extension.
func ContentTypeFor(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
