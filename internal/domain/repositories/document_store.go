package repositories

import (
	"context"

	"mediadb/internal/domain/models"
)

// DocumentStore is the uniform operation set over an opaque backing store
// (row table, committed file, SQL table, memory).
type DocumentStore interface {
	// ReadAll returns every top-level key and the current version token.
	// Fails with domain.ErrStoreUnavailable on transport or status errors.
	ReadAll(ctx context.Context) (*models.Snapshot, error)

	// Write persists the requested keys and returns the new version token.
	// Fails with domain.ErrStoreWriteConflict when req.Version is stale and
	// the store enforces tokens, domain.ErrStoreUnavailable otherwise.
	// Multi-key writes are not transactional unless the store says so.
	Write(ctx context.Context, req *models.WriteRequest) (string, error)

	// Delete removes a top-level key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error

	// Name identifies the backend in logs and metrics.
	Name() string
}
