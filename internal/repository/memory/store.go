// Package memory is an in-process DocumentStore with version tokens. It backs
// local development (STORE_BACKEND=memory) and service tests.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"mediadb/internal/domain"
	"mediadb/internal/domain/models"
	"mediadb/internal/domain/repositories"
)

const backendName = "memory"

// Store keeps the document in a map guarded by a mutex. Every successful
// write or delete bumps the revision, which is exposed as the version token.
type Store struct {
	mu       sync.RWMutex
	doc      models.Document
	revision int64

	// FailWrites, when set, makes Write fail on that key after earlier keys
	// were applied. Tests use it to exercise partial writes.
	FailWrites map[string]error
}

var _ repositories.DocumentStore = (*Store)(nil)

// New creates a store seeded with doc (may be nil)
func New(doc models.Document) *Store {
	if doc == nil {
		doc = models.Document{}
	}
	return &Store{doc: doc.Clone(), revision: 1}
}

// Name implements repositories.DocumentStore
func (s *Store) Name() string { return backendName }

// ReadAll implements repositories.DocumentStore
func (s *Store) ReadAll(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewUnavailable(backendName, "read", "", 0, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &models.Snapshot{
		Document: s.doc.Clone(),
		Version:  s.version(),
		ReadAt:   time.Now(),
	}, nil
}

// Write implements repositories.DocumentStore. Keys are applied in order; a
// stale version rejects the whole write before any key is applied.
func (s *Store) Write(ctx context.Context, req *models.WriteRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.NewUnavailable(backendName, "write", "", 0, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Version != "" && req.Version != s.version() {
		return "", domain.NewConflict(backendName, "write", s.version(), nil)
	}

	for _, key := range req.Keys {
		if err, ok := s.FailWrites[key]; ok {
			s.revision++
			return "", domain.NewUnavailable(backendName, "write", key, 0, err)
		}
		value, ok := req.Document[key]
		if !ok {
			continue
		}
		s.doc[key] = value
	}
	s.revision++
	return s.version(), nil
}

// Delete implements repositories.DocumentStore
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewUnavailable(backendName, "delete", key, 0, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doc[key]; ok {
		delete(s.doc, key)
		s.revision++
	}
	return nil
}

// Version returns the current version token
func (s *Store) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version()
}

func (s *Store) version() string {
	return strconv.FormatInt(s.revision, 10)
}
