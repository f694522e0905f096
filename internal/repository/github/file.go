// Package github stores the catalog document as a single JSON file committed
// to a repository through the GitHub contents API. The blob sha of the file is
// the version token: a commit presenting a stale sha is rejected.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
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

const (
	backendName    = "github"
	defaultAPIURL  = "https://api.github.com"
	apiVersion     = "2022-11-28"
	acceptJSON     = "application/vnd.github+json"
	acceptRaw      = "application/vnd.github.raw+json"
	defaultMessage = "Update catalog data"
)

// Config holds the repository coordinates
type Config struct {
	APIURL  string // defaults to https://api.github.com
	Token   string
	Repo    string // owner/name
	Branch  string
	Path    string // file path inside the repository, e.g. data/catalog.json
	Timeout time.Duration
}

// FileStore implements repositories.DocumentStore over one committed file
type FileStore struct {
	apiURL     string
	token      string
	repo       string
	branch     string
	path       string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ repositories.DocumentStore = (*FileStore)(nil)

type contentResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Size     int    `json:"size"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// NewFileStore creates a new contents-API backed store
func NewFileStore(cfg Config, logger *slog.Logger) *FileStore {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FileStore{
		apiURL: apiURL,
		token:  cfg.Token,
		repo:   cfg.Repo,
		branch: cfg.Branch,
		path:   strings.TrimLeft(cfg.Path, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// HTTPClient exposes the client so tests can mock the transport
func (s *FileStore) HTTPClient() *http.Client { return s.httpClient }

// Name implements repositories.DocumentStore
func (s *FileStore) Name() string { return backendName }

// ReadAll fetches and decodes the file. A missing file reads as an empty
// document with no version, so the first write creates it.
func (s *FileStore) ReadAll(ctx context.Context) (*models.Snapshot, error) {
	resp, err := s.get(ctx, acceptJSON)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		s.logger.Info("data file not found, starting empty", "repo", s.repo, "path", s.path)
		return &models.Snapshot{Document: models.Document{}, ReadAt: time.Now()}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, domain.NewUnavailable(backendName, "read", "", resp.StatusCode,
			fmt.Errorf("get contents failed: %s", truncate(body)))
	}

	var meta contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, domain.NewUnavailable(backendName, "read", "", resp.StatusCode,
			fmt.Errorf("failed to decode contents response: %w", err))
	}

	raw, err := s.fileBytes(ctx, &meta)
	if err != nil {
		return nil, err
	}

	doc := models.Document{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, domain.NewUnavailable(backendName, "read", "", resp.StatusCode,
				fmt.Errorf("data file is not a JSON object: %w", err))
		}
	}

	return &models.Snapshot{Document: doc, Version: meta.SHA, ReadAt: time.Now()}, nil
}

// fileBytes decodes inline content, or fetches the raw file when the API
// omitted it (files over 1 MB come back with encoding "none").
func (s *FileStore) fileBytes(ctx context.Context, meta *contentResponse) ([]byte, error) {
	if meta.Encoding == "base64" && meta.Content != "" {
		raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(meta.Content, "\n", ""))
		if err != nil {
			return nil, domain.NewUnavailable(backendName, "read", "", 0,
				fmt.Errorf("failed to decode file content: %w", err))
		}
		return raw, nil
	}
	if meta.Size == 0 {
		return nil, nil
	}

	resp, err := s.get(ctx, acceptRaw)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, domain.NewUnavailable(backendName, "read", "", resp.StatusCode,
			fmt.Errorf("get raw contents failed: %s", truncate(body)))
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewUnavailable(backendName, "read", "", resp.StatusCode, err)
	}
	return raw, nil
}

// Write commits the whole document. req.Keys only feeds the commit message;
// req.Version must be the sha of the file the document was derived from.
func (s *FileStore) Write(ctx context.Context, req *models.WriteRequest) (string, error) {
	content, err := json.MarshalIndent(req.Document, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	message := req.Message
	if message == "" {
		message = defaultMessage
	}

	return s.put(ctx, putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     req.Version,
		Branch:  s.branch,
	})
}

// Delete removes key from the file with a read-modify-commit cycle
func (s *FileStore) Delete(ctx context.Context, key string) error {
	snap, err := s.ReadAll(ctx)
	if err != nil {
		return err
	}
	if _, ok := snap.Document[key]; !ok {
		return nil
	}
	doc := snap.Document.Clone()
	delete(doc, key)

	_, err = s.Write(ctx, &models.WriteRequest{
		Document: doc,
		Version:  snap.Version,
		Message:  "Delete " + key,
	})
	return err
}

func (s *FileStore) put(ctx context.Context, body putRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal commit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.contentsURL(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create commit request: %w", err)
	}
	s.setHeaders(req, acceptJSON)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", domain.NewUnavailable(backendName, "write", "", 0, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		// 409: sha does not match the branch head; 422: sha missing for an existing file
		return "", &domain.StoreError{
			Op:      "write",
			Backend: backendName,
			Status:  resp.StatusCode,
			Kind:    domain.ErrStoreWriteConflict,
			Err:     fmt.Errorf("commit rejected: %s", truncate(respBody)),
		}
	default:
		return "", domain.NewUnavailable(backendName, "write", "", resp.StatusCode,
			fmt.Errorf("commit failed: %s", truncate(respBody)))
	}

	var out putResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", domain.NewUnavailable(backendName, "write", "", resp.StatusCode,
			fmt.Errorf("failed to decode commit response: %w", err))
	}

	s.logger.Info("data file committed",
		"repo", s.repo,
		"path", s.path,
		"message", body.Message,
		"sha", out.Content.SHA,
	)
	return out.Content.SHA, nil
}

func (s *FileStore) get(ctx context.Context, accept string) (*http.Response, error) {
	endpoint := s.contentsURL()
	if s.branch != "" {
		endpoint += "?ref=" + url.QueryEscape(s.branch)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create read request: %w", err)
	}
	s.setHeaders(req, accept)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewUnavailable(backendName, "read", "", 0, err)
	}
	return resp, nil
}

func (s *FileStore) contentsURL() string {
	return fmt.Sprintf("%s/repos/%s/contents/%s", s.apiURL, s.repo, s.path)
}

func (s *FileStore) setHeaders(req *http.Request, accept string) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
