package supabase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"mediadb/internal/domain"
	"mediadb/internal/domain/models"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tableURL = "https://project.supabase.co/rest/v1/dev_catalog"

func newMockedStore(t *testing.T) (*TableStore, *httpmock.MockTransport) {
	t.Helper()
	store := NewTableStore(Config{
		URL:   "https://project.supabase.co/",
		Key:   "service-key",
		Table: "dev_catalog",
	}, slog.New(slog.DiscardHandler))
	mock := httpmock.NewMockTransport()
	store.HTTPClient().Transport = mock
	return store, mock
}

func TestReadAll(t *testing.T) {
	store, mock := newMockedStore(t)
	mock.RegisterResponder(http.MethodGet, "=~^"+tableURL,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "key,value", req.URL.Query().Get("select"))
			assert.Equal(t, "service-key", req.Header.Get("apikey"))
			assert.Equal(t, "Bearer service-key", req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(http.StatusOK, `[
				{"key": "series", "value": [{"id": "s1"}]},
				{"key": "settings", "value": {"theme": "dark"}},
				{"key": "empty", "value": null}
			]`), nil
		})

	snap, err := store.ReadAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.Document{
		"series":   []interface{}{map[string]interface{}{"id": "s1"}},
		"settings": map[string]interface{}{"theme": "dark"},
		"empty":    nil,
	}, snap.Document)
	assert.Empty(t, snap.Version)
}

func TestReadAll_ErrorStatusIsUnavailable(t *testing.T) {
	store, mock := newMockedStore(t)
	mock.RegisterResponder(http.MethodGet, "=~^"+tableURL,
		httpmock.NewStringResponder(http.StatusBadGateway, "upstream down"))

	_, err := store.ReadAll(context.Background())

	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, http.StatusBadGateway, storeErr.Status)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestWrite_UpsertsRequestedKeysInOrder(t *testing.T) {
	store, mock := newMockedStore(t)

	var written []string
	mock.RegisterResponder(http.MethodPost, "=~^"+tableURL,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "key", req.URL.Query().Get("on_conflict"))
			assert.Equal(t, "resolution=merge-duplicates,return=minimal", req.Header.Get("Prefer"))
			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			var rows []map[string]interface{}
			require.NoError(t, json.Unmarshal(body, &rows))
			require.Len(t, rows, 1)
			written = append(written, rows[0]["key"].(string))
			return httpmock.NewStringResponse(http.StatusCreated, ""), nil
		})

	version, err := store.Write(context.Background(), &models.WriteRequest{
		Document: models.Document{"characters": []interface{}{}, "settings": map[string]interface{}{}, "series": []interface{}{}},
		Keys:     []string{"characters", "settings"},
	})

	require.NoError(t, err)
	assert.Empty(t, version)
	assert.Equal(t, []string{"characters", "settings"}, written)
}

func TestWrite_StopsAtFirstFailure(t *testing.T) {
	store, mock := newMockedStore(t)

	calls := 0
	mock.RegisterResponder(http.MethodPost, "=~^"+tableURL,
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 2 {
				return httpmock.NewStringResponse(http.StatusInternalServerError, "boom"), nil
			}
			return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
		})

	_, err := store.Write(context.Background(), &models.WriteRequest{
		Document: models.Document{"a": 1, "b": 2, "c": 3},
		Keys:     []string{"a", "b", "c"},
	})

	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "b", storeErr.Key)
	assert.Equal(t, http.StatusInternalServerError, storeErr.Status)
	assert.Equal(t, 2, calls)
}

func TestDelete(t *testing.T) {
	store, mock := newMockedStore(t)
	mock.RegisterResponder(http.MethodDelete, "=~^"+tableURL,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "eq.settings", req.URL.Query().Get("key"))
			return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
		})

	require.NoError(t, store.Delete(context.Background(), "settings"))
	assert.Equal(t, 1, mock.GetTotalCallCount())
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	store, mock := newMockedStore(t)
	mock.RegisterNoResponder(httpmock.ConnectionFailure)

	_, err := store.ReadAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	err = store.Delete(context.Background(), "settings")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
