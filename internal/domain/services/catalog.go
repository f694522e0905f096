package services

import (
	"context"

	"mediadb/internal/domain/models"
)

// CatalogService runs one read or read-merge-write cycle per request against
// the document store.
type CatalogService interface {
	// Read returns the stored document with defaults filled in.
	// Unprivileged callers get the stripped (public) view.
	Read(ctx context.Context, privileged bool) (*ReadResult, error)

	// Write merges the payload into the stored document and persists the
	// touched keys. Fails with domain.ErrInvalidPayload, domain.ErrUnauthorized,
	// domain.ErrStoreUnavailable or domain.ErrStoreWriteConflict.
	Write(ctx context.Context, req *WriteRequest) (*WriteResult, error)

	// Delete removes a top-level key from the store.
	Delete(ctx context.Context, key string, privileged bool) error
}

// ReadResult is the response of a read
type ReadResult struct {
	Document models.Document `json:"document"`
	Version  string          `json:"-"`
	Stripped bool            `json:"-"`
}

// WriteRequest is an incoming write. Payload is the decoded JSON body and must
// be an object.
type WriteRequest struct {
	Payload     interface{}
	Privileged  bool
	BypassMerge bool   // purge mode: replace keys verbatim, no image restoration
	IfMatch     string // version the client read, empty to skip the check
}

// WriteResult is the response of a successful write
type WriteResult struct {
	Success bool     `json:"success"`
	Version string   `json:"version,omitempty"`
	Keys    []string `json:"keys,omitempty"`
}
