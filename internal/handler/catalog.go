package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"mediadb/internal/domain/services"
	"mediadb/internal/httputil"
)

// CatalogHandler handles catalog document HTTP requests
type CatalogHandler struct {
	catalogService services.CatalogService
	logger         *slog.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService services.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// GetData returns the whole document
// GET /api/data
// Unprivileged callers get the stripped view.
func (h *CatalogHandler) GetData(w http.ResponseWriter, r *http.Request) {
	result, err := h.catalogService.Read(r.Context(), httputil.IsPrivileged(r))
	if err != nil {
		h.logger.Error("catalog read failed", "request_id", httputil.GetRequestID(r), "error", err)
		handleError(w, err)
		return
	}

	if result.Version != "" {
		w.Header().Set("ETag", strconv.Quote(result.Version))
	}
	view := "full"
	if result.Stripped {
		view = "public"
	}
	// Public and admin views share a URL
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Catalog-View", view)

	httputil.RespondJSON(w, http.StatusOK, result.Document)
}

// PostData merges the body into the document
// POST /api/data
// POST /api/data?purge=true replaces the body's keys verbatim (admin only).
func (h *CatalogHandler) PostData(w http.ResponseWriter, r *http.Request) {
	purge, err := parseBoolQuery(r, "purge")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "purge must be a boolean")
		return
	}

	var payload interface{}
	if err := httputil.ParseJSON(w, r, &payload); err != nil {
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.catalogService.Write(r.Context(), &services.WriteRequest{
		Payload:     payload,
		Privileged:  httputil.IsPrivileged(r),
		BypassMerge: purge,
		IfMatch:     parseETag(r.Header.Get("If-Match")),
	})
	if err != nil {
		h.logger.Warn("catalog write rejected",
			"request_id", httputil.GetRequestID(r),
			"purge", purge,
			"error", err,
		)
		handleError(w, err)
		return
	}

	if result.Version != "" {
		w.Header().Set("ETag", strconv.Quote(result.Version))
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// DeleteKey removes a top-level key
// DELETE /api/data/{key}
func (h *CatalogHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		httputil.RespondError(w, http.StatusBadRequest, "key is required")
		return
	}

	if err := h.catalogService.Delete(r.Context(), key, httputil.IsPrivileged(r)); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// HealthCheck handles health check requests
// GET /health
func (h *CatalogHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func parseBoolQuery(r *http.Request, name string) (bool, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(value)
}

// parseETag accepts quoted, weak and bare tags. "*" means no precondition.
func parseETag(header string) string {
	tag := strings.TrimSpace(header)
	tag = strings.TrimPrefix(tag, "W/")
	if tag == "*" {
		return ""
	}
	if unquoted, err := strconv.Unquote(tag); err == nil {
		return unquoted
	}
	return tag
}
