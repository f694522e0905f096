// Package cached wraps a DocumentStore with a short-lived read cache owned by
// the wrapper instance.
package cached

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"mediadb/internal/domain"
	"mediadb/internal/domain/models"
	"mediadb/internal/domain/repositories"
	"mediadb/internal/observability/metrics"
)

const (
	freshKey = "snapshot"
	staleKey = "last-good"
)

// Options configures the cache windows
type Options struct {
	// TTL is how long a snapshot is served without asking the store.
	// Zero disables caching.
	TTL time.Duration
	// StaleWindow is how long the last good snapshot may answer reads while
	// the store is unavailable. Zero disables the fallback.
	StaleWindow time.Duration
}

// Store caches ReadAll results. Every write or delete that reaches the inner
// store drops both the fresh and the stale entry, whether or not it succeeded,
// because a failed multi-key write may still have changed some keys.
type Store struct {
	next    repositories.DocumentStore
	cache   *cache.Cache
	opts    Options
	metrics *metrics.StoreMetrics
	logger  *slog.Logger

	// generation is bumped by Invalidate. A read only fills the cache if no
	// invalidation happened while it was in flight.
	mu         sync.Mutex
	generation uint64
}

var _ repositories.DocumentStore = (*Store)(nil)

// New creates a caching wrapper around next. m may be nil.
func New(next repositories.DocumentStore, opts Options, m *metrics.StoreMetrics, logger *slog.Logger) *Store {
	cleanup := opts.TTL * 2
	if opts.StaleWindow > cleanup {
		cleanup = opts.StaleWindow
	}
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Store{
		next:    next,
		cache:   cache.New(opts.TTL, cleanup),
		opts:    opts,
		metrics: m,
		logger:  logger,
	}
}

// Name implements repositories.DocumentStore
func (s *Store) Name() string { return s.next.Name() }

// ReadAll serves the cached snapshot while it is fresh, unless ctx asks for
// a fresh read.
func (s *Store) ReadAll(ctx context.Context) (*models.Snapshot, error) {
	if s.opts.TTL > 0 && !repositories.IsFreshRead(ctx) {
		if cached, found := s.cache.Get(freshKey); found {
			s.metrics.IncrementCacheHits()
			return copySnapshot(cached.(*models.Snapshot)), nil
		}
	}
	s.metrics.IncrementCacheMisses()

	generation := s.currentGeneration()
	snap, err := s.next.ReadAll(ctx)
	if err != nil {
		if fallback := s.staleFallback(ctx, err); fallback != nil {
			return fallback, nil
		}
		return nil, err
	}

	s.store(generation, snap)
	return snap, nil
}

func (s *Store) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// store caches snap unless the cache was invalidated after generation was
// taken, in which case snap may predate a write.
func (s *Store) store(generation uint64, snap *models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return
	}
	if s.opts.TTL > 0 {
		s.cache.Set(freshKey, copySnapshot(snap), cache.DefaultExpiration)
	}
	if s.opts.StaleWindow > 0 {
		s.cache.Set(staleKey, copySnapshot(snap), s.opts.StaleWindow)
	}
}

// Write forwards to the inner store and invalidates the cache
func (s *Store) Write(ctx context.Context, req *models.WriteRequest) (string, error) {
	version, err := s.next.Write(ctx, req)
	s.Invalidate()
	return version, err
}

// Delete forwards to the inner store and invalidates the cache
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.next.Delete(ctx, key)
	s.Invalidate()
	return err
}

// Invalidate drops every cached snapshot
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.generation++
	s.cache.Flush()
	s.mu.Unlock()
	s.metrics.IncrementInvalidations()
}

// staleFallback answers plain reads with the last good snapshot while the
// store is down. Fresh reads feed a merge and never get stale data.
func (s *Store) staleFallback(ctx context.Context, err error) *models.Snapshot {
	if s.opts.StaleWindow <= 0 || repositories.IsFreshRead(ctx) || !errors.Is(err, domain.ErrStoreUnavailable) {
		return nil
	}
	cached, found := s.cache.Get(staleKey)
	if !found {
		return nil
	}
	snap := copySnapshot(cached.(*models.Snapshot))
	s.metrics.IncrementStaleFallbacks()
	s.logger.Warn("store unavailable, serving stale snapshot",
		"backend", s.next.Name(),
		"read_at", snap.ReadAt,
		"error", err,
	)
	return snap
}

// copySnapshot copies the top-level map so callers adding or replacing keys
// cannot touch the cached entry. Nested values are shared and must be
// treated as read-only.
func copySnapshot(snap *models.Snapshot) *models.Snapshot {
	return &models.Snapshot{
		Document: snap.Document.Clone(),
		Version:  snap.Version,
		ReadAt:   snap.ReadAt,
	}
}
