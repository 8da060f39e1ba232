package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/utafrali/catalogstore/internal/storage"
)

type object struct {
	contentType string
	data        []byte
}

// Storage implements storage.Storage using an in-memory map.
type Storage struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

// New creates a new in-memory storage instance.
func New(baseURL string) *Storage {
	return &Storage{
		objects: make(map[string]object),
		baseURL: baseURL,
	}
}

// Upload keeps a copy of the object bytes.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	if err := storage.ValidateKey(input.Key); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", input.Key, err)
	}

	s.mu.Lock()
	s.objects[input.Key] = object{contentType: input.ContentType, data: data}
	s.mu.Unlock()

	return &storage.UploadResult{
		Key: input.Key,
		URL: storage.JoinURL(s.baseURL, input.Key),
	}, nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	return storage.JoinURL(s.baseURL, key), nil
}

// Get returns the stored bytes and content type of key.
func (s *Storage) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	return obj.data, obj.contentType, ok
}

// Len returns the number of stored objects.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
