package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const (
	privilegedKey contextKey = "privileged"
	requestIDKey  contextKey = "requestID"
)

// WithPrivileged marks the request as carrying valid admin credentials
func WithPrivileged(r *http.Request, privileged bool) *http.Request {
	ctx := context.WithValue(r.Context(), privilegedKey, privileged)
	return r.WithContext(ctx)
}

// IsPrivileged reports whether the privilege middleware accepted the caller.
// Requests that never passed through it are unprivileged.
func IsPrivileged(r *http.Request) bool {
	privileged, _ := r.Context().Value(privilegedKey).(bool)
	return privileged
}

// WithRequestID adds the request id to the request context
func WithRequestID(r *http.Request, id string) *http.Request {
	ctx := context.WithValue(r.Context(), requestIDKey, id)
	return r.WithContext(ctx)
}

// GetRequestID retrieves the request id, returns empty string if not found
func GetRequestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}
