package handler

import (
	"errors"
	"net/http"

	"mediadb/internal/domain"
	"mediadb/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var unauthorizedErr *domain.UnauthorizedError
	var storeErr *domain.StoreError

	switch {
	case errors.Is(err, domain.ErrInvalidPayload), errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unauthorizedErr):
		httputil.RespondErrorWithExtras(w, http.StatusUnauthorized, "admin credentials required",
			map[string]interface{}{"keys": unauthorizedErr.Keys})
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "admin credentials required")
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &storeErr):
		extras := map[string]interface{}{"backend": storeErr.Backend}
		if storeErr.Version != "" {
			extras["current_version"] = storeErr.Version
		}
		if storeErr.Key != "" {
			extras["key"] = storeErr.Key
		}
		detail := "document store unavailable, retry later"
		if storeErr.Kind == domain.ErrStoreWriteConflict {
			detail = "document changed since it was read, reload and retry"
		}
		httputil.RespondErrorWithExtras(w, storeErr.StatusCode(), detail, extras)
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
