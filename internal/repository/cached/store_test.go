package cached

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"mediadb/internal/domain"
	"mediadb/internal/domain/models"
	"mediadb/internal/domain/repositories"
	"mediadb/internal/observability/metrics"
	"mediadb/internal/repository/memory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts reads and can be switched into an outage
type countingStore struct {
	*memory.Store
	reads   int
	readErr error
}

func (c *countingStore) ReadAll(ctx context.Context) (*models.Snapshot, error) {
	c.reads++
	if c.readErr != nil {
		return nil, c.readErr
	}
	return c.Store.ReadAll(ctx)
}

func newCachedStore(t *testing.T, opts Options) (*Store, *countingStore, *metrics.StoreMetrics) {
	t.Helper()
	inner := &countingStore{Store: memory.New(models.Document{"settings": map[string]interface{}{"v": "1"}})}
	m, err := metrics.NewStoreMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return New(inner, opts, m, slog.New(slog.DiscardHandler)), inner, m
}

func TestReadAll_ServesFromCacheWithinTTL(t *testing.T) {
	store, inner, m := newCachedStore(t, Options{TTL: time.Minute})
	ctx := context.Background()

	first, err := store.ReadAll(ctx)
	require.NoError(t, err)
	second, err := store.ReadAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.reads)
	assert.Equal(t, first.Document, second.Document)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheMisses))
}

func TestReadAll_CallerCannotTouchCachedEntry(t *testing.T) {
	store, _, _ := newCachedStore(t, Options{TTL: time.Minute})
	ctx := context.Background()

	first, err := store.ReadAll(ctx)
	require.NoError(t, err)
	first.Document["injected"] = true

	second, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.NotContains(t, second.Document, "injected")
}

func TestReadAll_ZeroTTLDisablesCache(t *testing.T) {
	store, inner, _ := newCachedStore(t, Options{})

	for i := 0; i < 3; i++ {
		_, err := store.ReadAll(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 3, inner.reads)
}

func TestReadAll_FreshReadBypassesCache(t *testing.T) {
	store, inner, _ := newCachedStore(t, Options{TTL: time.Minute})

	_, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	_, err = store.ReadAll(repositories.WithFreshRead(context.Background()))
	require.NoError(t, err)

	assert.Equal(t, 2, inner.reads)
}

func TestWrite_InvalidatesCache(t *testing.T) {
	store, inner, m := newCachedStore(t, Options{TTL: time.Minute})
	ctx := context.Background()

	snap, err := store.ReadAll(ctx)
	require.NoError(t, err)

	_, err = store.Write(ctx, &models.WriteRequest{
		Document: models.Document{"settings": map[string]interface{}{"v": "2"}},
		Keys:     []string{"settings"},
		Version:  snap.Version,
	})
	require.NoError(t, err)

	after, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"v": "2"}, after.Document["settings"])
	assert.Equal(t, 2, inner.reads)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Invalidations))
}

func TestWrite_FailedWriteStillInvalidates(t *testing.T) {
	store, inner, _ := newCachedStore(t, Options{TTL: time.Minute})
	ctx := context.Background()
	inner.FailWrites = map[string]error{"settings": errors.New("boom")}

	_, err := store.ReadAll(ctx)
	require.NoError(t, err)
	_, err = store.Write(ctx, &models.WriteRequest{Document: models.Document{"settings": nil}, Keys: []string{"settings"}})
	require.Error(t, err)
	_, err = store.ReadAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.reads)
}

// slowReadStore takes its snapshot, then holds the read until released
type slowReadStore struct {
	*memory.Store
	started chan struct{}
	release chan struct{}
}

func (s *slowReadStore) ReadAll(ctx context.Context) (*models.Snapshot, error) {
	snap, err := s.Store.ReadAll(ctx)
	s.started <- struct{}{}
	<-s.release
	return snap, err
}

func TestReadAll_InFlightReadDoesNotRecacheAfterWrite(t *testing.T) {
	inner := &slowReadStore{
		Store:   memory.New(models.Document{"settings": map[string]interface{}{"v": "old"}}),
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	store := New(inner, Options{TTL: time.Minute, StaleWindow: time.Minute}, nil, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	done := make(chan *models.Snapshot)
	go func() {
		snap, err := store.ReadAll(ctx)
		assert.NoError(t, err)
		done <- snap
	}()
	<-inner.started

	_, err := store.Write(ctx, &models.WriteRequest{
		Document: models.Document{"settings": map[string]interface{}{"v": "new"}},
		Keys:     []string{"settings"},
	})
	require.NoError(t, err)

	close(inner.release)
	inFlight := <-done
	assert.Equal(t, map[string]interface{}{"v": "old"}, inFlight.Document["settings"])

	after, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"v": "new"}, after.Document["settings"])
}

func TestDelete_InvalidatesCache(t *testing.T) {
	store, _, _ := newCachedStore(t, Options{TTL: time.Minute})
	ctx := context.Background()

	_, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "settings"))

	after, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.NotContains(t, after.Document, "settings")
}

func TestReadAll_StaleFallback(t *testing.T) {
	outage := domain.NewUnavailable("memory", "read", "", 503, errors.New("down"))

	t.Run("serves last good snapshot to plain reads", func(t *testing.T) {
		store, inner, m := newCachedStore(t, Options{StaleWindow: time.Minute})
		ctx := context.Background()

		good, err := store.ReadAll(ctx)
		require.NoError(t, err)
		inner.readErr = outage

		stale, err := store.ReadAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, good.Version, stale.Version)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.StaleFallbacks))
	})

	t.Run("fresh reads surface the outage", func(t *testing.T) {
		store, inner, _ := newCachedStore(t, Options{StaleWindow: time.Minute})

		_, err := store.ReadAll(context.Background())
		require.NoError(t, err)
		inner.readErr = outage

		_, err = store.ReadAll(repositories.WithFreshRead(context.Background()))
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	})

	t.Run("disabled without a stale window", func(t *testing.T) {
		store, inner, _ := newCachedStore(t, Options{})

		_, err := store.ReadAll(context.Background())
		require.NoError(t, err)
		inner.readErr = outage

		_, err = store.ReadAll(context.Background())
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	})

	t.Run("other errors are not masked", func(t *testing.T) {
		store, inner, _ := newCachedStore(t, Options{StaleWindow: time.Minute})

		_, err := store.ReadAll(context.Background())
		require.NoError(t, err)
		inner.readErr = errors.New("bug")

		_, err = store.ReadAll(context.Background())
		assert.EqualError(t, err, "bug")
	})
}

func TestInstancesDoNotShareState(t *testing.T) {
	a, _, _ := newCachedStore(t, Options{TTL: time.Minute})
	b, innerB, _ := newCachedStore(t, Options{TTL: time.Minute})

	_, err := a.ReadAll(context.Background())
	require.NoError(t, err)
	_, err = b.ReadAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, innerB.reads)
}
