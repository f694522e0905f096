// Package instrumented records Prometheus metrics for every DocumentStore
// call it forwards.
package instrumented

import (
	"context"
	"errors"
	"time"

	"mediadb/internal/domain"
	"mediadb/internal/domain/models"
	"mediadb/internal/domain/repositories"
	"mediadb/internal/observability/metrics"
)

// Store decorates a DocumentStore with operation counters and latencies
type Store struct {
	next    repositories.DocumentStore
	metrics *metrics.StoreMetrics
}

var _ repositories.DocumentStore = (*Store)(nil)

// New wraps next. A nil m makes the wrapper a pass-through.
func New(next repositories.DocumentStore, m *metrics.StoreMetrics) *Store {
	return &Store{next: next, metrics: m}
}

// Name implements repositories.DocumentStore
func (s *Store) Name() string { return s.next.Name() }

// ReadAll implements repositories.DocumentStore
func (s *Store) ReadAll(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()
	snap, err := s.next.ReadAll(ctx)
	s.observe("read", start, err)
	return snap, err
}

// Write implements repositories.DocumentStore
func (s *Store) Write(ctx context.Context, req *models.WriteRequest) (string, error) {
	start := time.Now()
	version, err := s.next.Write(ctx, req)
	s.observe("write", start, err)
	return version, err
}

// Delete implements repositories.DocumentStore
func (s *Store) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Delete(ctx, key)
	s.observe("delete", start, err)
	return err
}

func (s *Store) observe(op string, start time.Time, err error) {
	s.metrics.ObserveOperation(s.next.Name(), op, result(err), time.Since(start).Seconds())
}

func result(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, domain.ErrStoreWriteConflict):
		return metrics.ResultConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		return metrics.ResultUnavailable
	default:
		return metrics.ResultError
	}
}
