package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ObjectStorage is the pre-signed-upload collaborator used by the optional
// document step of employer onboarding. The core treats it as a black box:
// a URL/key pair out, a boolean existence check back.
type ObjectStorage interface {
	// GenerateKey builds a unique object key under the given prefix.
	GenerateKey(prefix, fileName string) string
	// SignedUploadURL returns a URL the client can PUT the object to.
	SignedUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, error)
	// Exists reports whether the object was actually uploaded.
	Exists(ctx context.Context, key string) (bool, error)
	// PublicURL returns the durable read URL for a stored object.
	PublicURL(key string) string
}

// LocalStorage is an in-memory ObjectStorage for development and tests.
// Uploads are simulated with MarkUploaded.
type LocalStorage struct {
	baseURL string

	mu      sync.Mutex
	objects map[string]bool
}

func NewLocalStorage(baseURL string) *LocalStorage {
	return &LocalStorage{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]bool),
	}
}

func (s *LocalStorage) GenerateKey(prefix, fileName string) string {
	ext := filepath.Ext(fileName)
	return fmt.Sprintf("%s/%s%s", strings.TrimRight(prefix, "/"), uuid.New().String(), ext)
}

func (s *LocalStorage) SignedUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, error) {
	expires := time.Now().Add(expiresIn).Unix()
	return fmt.Sprintf("%s/%s?signed=1&expires=%d", s.baseURL, key, expires), nil
}

func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key], nil
}

func (s *LocalStorage) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", s.baseURL, key)
}

// MarkUploaded records the object as present, standing in for a real upload.
func (s *LocalStorage) MarkUploaded(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = true
}
