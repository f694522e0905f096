package github

import (
	"context"
	"encoding/base64"
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

const contentsURL = "https://api.github.com/repos/acme/catalog/contents/data/catalog.json"

func newMockedStore(t *testing.T) (*FileStore, *httpmock.MockTransport) {
	t.Helper()
	store := NewFileStore(Config{
		Token:  "gh-token",
		Repo:   "acme/catalog",
		Branch: "main",
		Path:   "/data/catalog.json",
	}, slog.New(slog.DiscardHandler))
	mock := httpmock.NewMockTransport()
	store.HTTPClient().Transport = mock
	return store, mock
}

func contentsBody(t *testing.T, sha string, doc interface{}) string {
	t.Helper()
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(raw)
	// the API wraps content at 60 columns
	if len(encoded) > 60 {
		encoded = encoded[:60] + "\n" + encoded[60:]
	}
	body, err := json.Marshal(map[string]interface{}{
		"sha":      sha,
		"encoding": "base64",
		"content":  encoded,
		"size":     len(raw),
	})
	require.NoError(t, err)
	return string(body)
}

func TestReadAll(t *testing.T) {
	store, mock := newMockedStore(t)
	doc := map[string]interface{}{
		"series":   []interface{}{map[string]interface{}{"id": "s1", "title": "A long enough title to wrap"}},
		"settings": map[string]interface{}{},
	}
	mock.RegisterResponder(http.MethodGet, "=~^"+contentsURL,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "main", req.URL.Query().Get("ref"))
			assert.Equal(t, "Bearer gh-token", req.Header.Get("Authorization"))
			assert.Equal(t, acceptJSON, req.Header.Get("Accept"))
			return httpmock.NewStringResponse(http.StatusOK, contentsBody(t, "sha-1", doc)), nil
		})

	snap, err := store.ReadAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "sha-1", snap.Version)
	assert.Equal(t, models.Document(doc), snap.Document)
}

func TestReadAll_MissingFileIsEmpty(t *testing.T) {
	store, mock := newMockedStore(t)
	mock.RegisterResponder(http.MethodGet, "=~^"+contentsURL,
		httpmock.NewStringResponder(http.StatusNotFound, `{"message":"Not Found"}`))

	snap, err := store.ReadAll(context.Background())
	require.NoError(t, err)

	assert.Empty(t, snap.Document)
	assert.Empty(t, snap.Version)
}

func TestReadAll_LargeFileFetchesRaw(t *testing.T) {
	store, mock := newMockedStore(t)
	mock.RegisterResponder(http.MethodGet, "=~^"+contentsURL,
		func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Accept") == acceptRaw {
				return httpmock.NewStringResponse(http.StatusOK, `{"settings":{"big":true}}`), nil
			}
			return httpmock.NewStringResponse(http.StatusOK,
				`{"sha":"sha-big","encoding":"none","content":"","size":2000000}`), nil
		})

	snap, err := store.ReadAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "sha-big", snap.Version)
	assert.Equal(t, map[string]interface{}{"big": true}, snap.Document["settings"])
	assert.Equal(t, 2, mock.GetTotalCallCount())
}

func TestReadAll_ServerErrorIsUnavailable(t *testing.T) {
	store, mock := newMockedStore(t)
	mock.RegisterResponder(http.MethodGet, "=~^"+contentsURL,
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "maintenance"))

	_, err := store.ReadAll(context.Background())

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestWrite_CommitsWithSha(t *testing.T) {
	store, mock := newMockedStore(t)
	mock.RegisterResponder(http.MethodPut, contentsURL,
		func(req *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			var put putRequest
			require.NoError(t, json.Unmarshal(body, &put))

			assert.Equal(t, "sha-1", put.SHA)
			assert.Equal(t, "main", put.Branch)
			assert.Equal(t, "Update settings", put.Message)

			raw, err := base64.StdEncoding.DecodeString(put.Content)
			require.NoError(t, err)
			assert.JSONEq(t, `{"settings":{"theme":"dark"}}`, string(raw))

			return httpmock.NewStringResponse(http.StatusOK, `{"content":{"sha":"sha-2"}}`), nil
		})

	version, err := store.Write(context.Background(), &models.WriteRequest{
		Document: models.Document{"settings": map[string]interface{}{"theme": "dark"}},
		Keys:     []string{"settings"},
		Version:  "sha-1",
		Message:  "Update settings",
	})

	require.NoError(t, err)
	assert.Equal(t, "sha-2", version)
}

func TestWrite_StaleShaIsConflict(t *testing.T) {
	for _, status := range []int{http.StatusConflict, http.StatusUnprocessableEntity} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			store, mock := newMockedStore(t)
			mock.RegisterResponder(http.MethodPut, contentsURL,
				httpmock.NewStringResponder(status, `{"message":"does not match"}`))

			_, err := store.Write(context.Background(), &models.WriteRequest{
				Document: models.Document{},
				Version:  "stale",
			})

			require.ErrorIs(t, err, domain.ErrStoreWriteConflict)
			var storeErr *domain.StoreError
			require.ErrorAs(t, err, &storeErr)
			assert.Equal(t, http.StatusConflict, storeErr.StatusCode())
			assert.Equal(t, status, storeErr.Status)
		})
	}
}

func TestDelete_RemovesKeyAndCommits(t *testing.T) {
	store, mock := newMockedStore(t)
	mock.RegisterResponder(http.MethodGet, "=~^"+contentsURL,
		httpmock.NewStringResponder(http.StatusOK, contentsBody(t, "sha-1", map[string]interface{}{
			"settings": map[string]interface{}{},
			"series":   []interface{}{},
		})))
	mock.RegisterResponder(http.MethodPut, contentsURL,
		func(req *http.Request) (*http.Response, error) {
			var put putRequest
			require.NoError(t, json.NewDecoder(req.Body).Decode(&put))
			raw, err := base64.StdEncoding.DecodeString(put.Content)
			require.NoError(t, err)
			assert.JSONEq(t, `{"series":[]}`, string(raw))
			assert.Equal(t, "Delete settings", put.Message)
			return httpmock.NewStringResponse(http.StatusOK, `{"content":{"sha":"sha-2"}}`), nil
		})

	require.NoError(t, store.Delete(context.Background(), "settings"))
	// absent key: read only, no commit
	require.NoError(t, store.Delete(context.Background(), "missing"))

	info := mock.GetCallCountInfo()
	assert.Equal(t, 1, info["PUT "+contentsURL])
}
