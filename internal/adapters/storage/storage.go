// Package storage provides the object storage backends for photos and QR
// codes. Provider "s3" talks to AWS S3; "memory" keeps blobs in process for
// development and tests.
package storage

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"weddingmemories/config"
	"weddingmemories/internal/domain"
)

// New creates an ObjectStorage from config. Unknown providers fall back to
// the in-memory store with a warning, mirroring how the mailer degrades.
func New(cfg config.StorageConfig) (domain.ObjectStorage, error) {
	switch cfg.Provider {
	case "s3":
		return newS3Storage(cfg)
	case "memory":
		return NewMemory(cfg.PublicBaseURL), nil
	default:
		log.Printf("[STORAGE] Unknown storage provider %q, using memory", cfg.Provider)
		return NewMemory(cfg.PublicBaseURL), nil
	}
}

// MemoryStorage is an in-process ObjectStorage. Safe for concurrent use.
type MemoryStorage struct {
	baseURL string

	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory returns an empty MemoryStorage whose URLs are rooted at baseURL.
func NewMemory(baseURL string) *MemoryStorage {
	if baseURL == "" {
		baseURL = "memory://blobs"
	}
	return &MemoryStorage{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		blobs:   make(map[string][]byte),
	}
}

func (m *MemoryStorage) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domain.StorageError{Op: "put", Path: path, Err: err}
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.blobs[path] = cp
	m.mu.Unlock()
	return m.baseURL + "/" + path, nil
}

func (m *MemoryStorage) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[path]; !ok {
		return &domain.StorageError{Op: "delete", Path: path, Err: domain.ErrNotFound}
	}
	delete(m.blobs, path)
	return nil
}

func (m *MemoryStorage) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var paths []string
	for p := range m.blobs {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// Get returns a stored blob. Test helper; not part of domain.ObjectStorage.
func (m *MemoryStorage) Get(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[path]
	return b, ok
}

var _ domain.ObjectStorage = (*MemoryStorage)(nil)

func joinURL(base, path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(base, "/"), strings.TrimPrefix(path, "/"))
}
