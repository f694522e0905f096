package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidPayload     = errors.New("invalid payload")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrStoreWriteConflict = errors.New("store write conflict")
)

// UnauthorizedError names the protected keys a caller touched without privilege.
type UnauthorizedError struct {
	Keys []string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: admin credentials required for %v", e.Keys)
}

func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

// Is allows errors.Is() to match against ErrUnauthorized
func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// StoreError wraps a backing store failure with enough detail for the caller
// to decide between retry and abort.
type StoreError struct {
	Op      string // "read", "write", "delete"
	Backend string // adapter name
	Key     string // top-level key being written, empty for whole-document ops
	Status  int    // upstream HTTP status, 0 when not applicable
	Version string // current version when known (conflicts)
	Kind    error  // ErrStoreUnavailable or ErrStoreWriteConflict
	Err     error  // underlying cause, may be nil
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s: %s %s", e.Kind, e.Backend, e.Op)
	if e.Key != "" {
		msg += fmt.Sprintf(" key=%q", e.Key)
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" status=%d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is allows errors.Is() to match against the store sentinels
func (e *StoreError) Is(target error) bool {
	return target == e.Kind
}

// StatusCode implements the HTTPError interface
func (e *StoreError) StatusCode() int {
	if e.Kind == ErrStoreWriteConflict {
		return http.StatusConflict
	}
	return http.StatusServiceUnavailable
}

// NewUnavailable builds a StoreError for a transient backing store failure.
func NewUnavailable(backend, op, key string, status int, err error) *StoreError {
	return &StoreError{Op: op, Backend: backend, Key: key, Status: status, Kind: ErrStoreUnavailable, Err: err}
}

// NewConflict builds a StoreError for a stale version token.
func NewConflict(backend, op, version string, err error) *StoreError {
	return &StoreError{Op: op, Backend: backend, Version: version, Kind: ErrStoreWriteConflict, Err: err}
}
