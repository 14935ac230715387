// Package artifact keeps compiled outputs of async compile jobs.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrNotFound = errors.New("artifact not found")

// Store persists artifacts by key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// MemoryStore holds the most recently written artifacts in memory. Older
// entries are evicted once the entry limit is reached.
type MemoryStore struct {
	cache *lru.Cache[string, []byte]
}

func NewMemoryStore(maxEntries int) (*MemoryStore, error) {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	cache, err := lru.New[string, []byte](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("init artifact cache: %w", err)
	}
	return &MemoryStore{cache: cache}, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	s.cache.Add(key, append([]byte(nil), data...))
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	data, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func normalizeKey(key string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("artifact key is required")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid artifact key: %s", key)
	}
	return key, nil
}
