package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/utafrali/catalogstore/internal/storage"
)

// Storage implements storage.Storage on a local directory served as static
// files under baseURL.
type Storage struct {
	dir     string
	baseURL string
}

// New creates dir if needed and returns a Storage writing into it.
func New(dir, baseURL string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir %s: %w", dir, err)
	}
	return &Storage{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the directory objects are written to.
func (s *Storage) Dir() string {
	return s.dir
}

// Upload writes the object through a temp file so a concurrent reader sees
// either the old or the new image.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	if err := storage.ValidateKey(input.Key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, input.Data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("write %s: %w", input.Key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("close %s: %w", input.Key, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("chmod %s: %w", input.Key, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, input.Key)); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("store %s: %w", input.Key, err)
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: storage.JoinURL(s.baseURL, input.Key),
	}, nil
}

// Delete removes the object stored under key.
func (s *Storage) Delete(_ context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return storage.ErrNotFound
	}
	return err
}

// GetURL returns the public URL for key.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}
	return storage.JoinURL(s.baseURL, key), nil
}
