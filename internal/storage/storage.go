package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound is returned when no object is stored under a key.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that are not a plain file name.
	ErrInvalidKey = errors.New("invalid object key")
)

// Storage stores product images under flat keys.
type Storage interface {
	// Upload stores the object, replacing any object with the same key.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL for key without checking it exists.
	GetURL(ctx context.Context, key string) (string, error)
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}

// ValidateKey rejects empty keys and keys that would escape a flat
// directory.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, `/\`) || filepath.Base(key) != key {
		return ErrInvalidKey
	}
	return nil
}

// JoinURL joins a base URL and a key with exactly one slash.
func JoinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
