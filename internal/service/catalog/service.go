// Package catalog implements the read/merge/write cycle of the catalog
// document: stripping heavy image payloads from public reads and restoring
// them when an admin writes back an edit built on such a read.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"mediadb/internal/domain"
	"mediadb/internal/domain/models"
	"mediadb/internal/domain/repositories"
	"mediadb/internal/domain/services"
	"mediadb/internal/schema"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// catalogService implements the CatalogService interface
type catalogService struct {
	store   repositories.DocumentStore
	schema  *schema.Schema
	timeout time.Duration
	logger  *slog.Logger
}

// NewCatalogService creates a new catalog service. timeout bounds every
// backing store call; zero disables the service-level bound and leaves it to
// the adapter's HTTP client or pool.
func NewCatalogService(
	store repositories.DocumentStore,
	s *schema.Schema,
	timeout time.Duration,
	logger *slog.Logger,
) services.CatalogService {
	return &catalogService{
		store:   store,
		schema:  s,
		timeout: timeout,
		logger:  logger,
	}
}

// Read fetches the document, fills defaults and strips it for the public.
func (s *catalogService) Read(ctx context.Context, privileged bool) (*services.ReadResult, error) {
	snap, err := s.readSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	doc := s.withDefaults(snap.Document)
	if !privileged {
		doc = Strip(s.schema, doc)
	}

	return &services.ReadResult{
		Document: doc,
		Version:  snap.Version,
		Stripped: !privileged,
	}, nil
}

// Write merges and persists an incoming payload
func (s *catalogService) Write(ctx context.Context, req *services.WriteRequest) (*services.WriteResult, error) {
	incoming, err := s.validateWriteRequest(req)
	if err != nil {
		return nil, err
	}

	keys := incoming.Keys()
	sort.Strings(keys)

	if err := s.authorize(keys, req.Privileged, req.BypassMerge); err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		s.logger.Debug("empty write payload, nothing to persist")
		return &services.WriteResult{Success: true}, nil
	}

	snap, err := s.readSnapshot(repositories.WithFreshRead(ctx))
	if err != nil {
		return nil, err
	}

	if req.IfMatch != "" && snap.Version != "" && req.IfMatch != snap.Version {
		return nil, domain.NewConflict(s.store.Name(), "write", snap.Version,
			fmt.Errorf("client read version %q, store is at %q", req.IfMatch, snap.Version))
	}

	var merged models.Document
	if req.BypassMerge {
		merged = Overlay(snap.Document, incoming)
	} else {
		merged = Merge(s.schema, snap.Document, incoming)
	}

	storeCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	version, err := s.store.Write(storeCtx, &models.WriteRequest{
		Document: merged,
		Keys:     keys,
		Version:  snap.Version,
		Message:  commitMessage(keys, req.BypassMerge),
	})
	if err != nil {
		s.logger.Error("document write failed",
			"backend", s.store.Name(),
			"keys", keys,
			"bypass", req.BypassMerge,
			"error", err,
		)
		return nil, s.wrapStoreErr("write document", err)
	}

	s.logger.Info("document written",
		"backend", s.store.Name(),
		"keys", keys,
		"bypass", req.BypassMerge,
		"version", version,
	)

	return &services.WriteResult{
		Success: true,
		Version: version,
		Keys:    keys,
	}, nil
}

// Delete removes a top-level key
func (s *catalogService) Delete(ctx context.Context, key string, privileged bool) error {
	key = strings.TrimSpace(key)
	if err := validation.Validate(key, validation.Required); err != nil {
		return fmt.Errorf("%w: key %v", domain.ErrValidation, err)
	}
	if err := s.authorize([]string{key}, privileged, false); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.store.Delete(ctx, key); err != nil {
		return s.wrapStoreErr("delete key", err)
	}

	s.logger.Info("document key deleted", "backend", s.store.Name(), "key", key)
	return nil
}

func (s *catalogService) readSnapshot(ctx context.Context) (*models.Snapshot, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	snap, err := s.store.ReadAll(ctx)
	if err != nil {
		s.logger.Error("document read failed", "backend", s.store.Name(), "error", err)
		return nil, s.wrapStoreErr("read document", err)
	}
	if snap.Document == nil {
		snap.Document = models.Document{}
	}
	return snap, nil
}

// withDefaults fills declared keys that are absent or null. The stored
// document is not modified.
func (s *catalogService) withDefaults(doc models.Document) models.Document {
	out := doc.Clone()
	for _, key := range s.schema.Keys() {
		if v, ok := out[key]; ok && v != nil {
			continue
		}
		if def, ok := s.schema.Default(key); ok {
			out[key] = def
		}
	}
	return out
}

func (s *catalogService) authorize(keys []string, privileged, bypass bool) error {
	if privileged {
		return nil
	}
	if bypass {
		return &domain.UnauthorizedError{Keys: keys}
	}
	if protected := s.schema.ProtectedKeys(keys); len(protected) > 0 {
		return &domain.UnauthorizedError{Keys: protected}
	}
	return nil
}

// validateWriteRequest checks the payload is a JSON object
func (s *catalogService) validateWriteRequest(req *services.WriteRequest) (models.Document, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: missing request", domain.ErrInvalidPayload)
	}
	err := validation.Validate(req.Payload,
		validation.NotNil.Error("body must be a JSON object"),
		validation.By(isJSONObject),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	switch p := req.Payload.(type) {
	case models.Document:
		return p, nil
	default:
		return models.Document(p.(map[string]interface{})), nil
	}
}

func isJSONObject(value interface{}) error {
	switch value.(type) {
	case map[string]interface{}, models.Document:
		return nil
	case []interface{}:
		return errors.New("body must be a JSON object, got an array")
	default:
		return fmt.Errorf("body must be a JSON object, got %T", value)
	}
}

func (s *catalogService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// wrapStoreErr keeps StoreError values intact and classifies anything else
// (deadline exceeded, programming errors) as unavailable.
func (s *catalogService) wrapStoreErr(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, domain.ErrStoreWriteConflict) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, domain.NewUnavailable(s.store.Name(), op, "", 0, err))
}

func commitMessage(keys []string, bypass bool) string {
	if bypass {
		return "Purge " + strings.Join(keys, ", ")
	}
	return "Update " + strings.Join(keys, ", ")
}
