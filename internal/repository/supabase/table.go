// Package supabase stores the catalog document as rows of a PostgREST table
// (one row per top-level key) through the Supabase REST API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mediadb/internal/domain"
	"mediadb/internal/domain/models"
	"mediadb/internal/domain/repositories"
)

const backendName = "supabase"

// Config holds the REST endpoint settings
type Config struct {
	URL     string // project URL, e.g. https://xyz.supabase.co
	Key     string // service role or anon key
	Table   string // table with columns key (text, unique) and value (jsonb)
	Timeout time.Duration
}

// TableStore implements repositories.DocumentStore over PostgREST.
// It has no version tokens: concurrent writers are last-write-wins.
type TableStore struct {
	baseURL    string
	apiKey     string
	table      string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ repositories.DocumentStore = (*TableStore)(nil)

type row struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// NewTableStore creates a new PostgREST-backed store
func NewTableStore(cfg Config, logger *slog.Logger) *TableStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TableStore{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.Key,
		table:   cfg.Table,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// HTTPClient exposes the client so tests can mock the transport
func (s *TableStore) HTTPClient() *http.Client { return s.httpClient }

// Name implements repositories.DocumentStore
func (s *TableStore) Name() string { return backendName }

// ReadAll fetches every row and assembles the document
func (s *TableStore) ReadAll(ctx context.Context) (*models.Snapshot, error) {
	endpoint := fmt.Sprintf("%s?select=key,value", s.tableURL())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create read request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewUnavailable(backendName, "read", "", 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewUnavailable(backendName, "read", "", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewUnavailable(backendName, "read", "", resp.StatusCode,
			fmt.Errorf("read failed: %s", truncate(body)))
	}

	var rows []row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, domain.NewUnavailable(backendName, "read", "", resp.StatusCode,
			fmt.Errorf("failed to decode rows: %w", err))
	}

	doc := make(models.Document, len(rows))
	for _, r := range rows {
		var value interface{}
		if len(r.Value) > 0 {
			if err := json.Unmarshal(r.Value, &value); err != nil {
				return nil, domain.NewUnavailable(backendName, "read", r.Key, resp.StatusCode,
					fmt.Errorf("failed to decode value: %w", err))
			}
		}
		doc[r.Key] = value
	}

	return &models.Snapshot{Document: doc, ReadAt: time.Now()}, nil
}

// Write upserts one row per requested key, in order. The first failure stops
// the write; rows written before it stay written.
func (s *TableStore) Write(ctx context.Context, req *models.WriteRequest) (string, error) {
	var written []string
	for _, key := range req.Keys {
		value, ok := req.Document[key]
		if !ok {
			continue
		}
		if err := s.upsert(ctx, key, value); err != nil {
			if len(written) > 0 {
				s.logger.Warn("partial document write",
					"written", written,
					"failed_key", key,
					"error", err,
				)
			}
			return "", err
		}
		written = append(written, key)
	}
	return "", nil
}

func (s *TableStore) upsert(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal([]map[string]interface{}{{"key": key, "value": value}})
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}

	endpoint := fmt.Sprintf("%s?on_conflict=key", s.tableURL())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create write request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.NewUnavailable(backendName, "write", key, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return domain.NewUnavailable(backendName, "write", key, resp.StatusCode,
			fmt.Errorf("upsert failed: %s", truncate(body)))
	}

	s.logger.Debug("row upserted", "table", s.table, "key", key, "bytes", len(payload))
	return nil
}

// Delete removes the row for key
func (s *TableStore) Delete(ctx context.Context, key string) error {
	endpoint := fmt.Sprintf("%s?key=eq.%s", s.tableURL(), url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.NewUnavailable(backendName, "delete", key, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return domain.NewUnavailable(backendName, "delete", key, resp.StatusCode,
			fmt.Errorf("delete failed: %s", truncate(body)))
	}
	return nil
}

func (s *TableStore) tableURL() string {
	return fmt.Sprintf("%s/rest/v1/%s", s.baseURL, s.table)
}

func (s *TableStore) setHeaders(req *http.Request) {
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
