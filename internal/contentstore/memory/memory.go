// Package memory is an in-process content store. The server uses it when
// the storage provider is "memory"; tests use it to inject upload failures.
package memory

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/dmitrijs2005/securefiles/internal/contentstore"
)

const ProviderName = "MEMORY"

type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	// FailUploads makes Upload return common.ErrStorageUnavailable.
	FailUploads bool
}

func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

func (s *Store) Provider() string { return ProviderName }

func (s *Store) Upload(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", contentstore.Unavailable("upload", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUploads {
		return "", contentstore.Unavailable("upload", common.ErrStorageUnavailable)
	}

	id, err := contentstore.ComputeCID(data)
	if err != nil {
		return "", contentstore.Unavailable("upload", err)
	}
	s.blobs[id] = append([]byte(nil), data...)
	return id, nil
}

func (s *Store) Download(ctx context.Context, contentID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, contentstore.Unavailable("download", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[contentID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return append([]byte(nil), b...), nil
}

// Put overwrites a blob in place. Tests use it to simulate tampering.
func (s *Store) Put(contentID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[contentID] = append([]byte(nil), data...)
}

// Len returns the number of stored blobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
