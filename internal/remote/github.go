package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"insightsapi/internal/config"
)

const defaultAPIBaseURL = "https://api.github.com"

// GitHubStore implements FileStore against the GitHub Contents API.
// It is safe for concurrent use by multiple goroutines.
type GitHubStore struct {
	httpClient *http.Client
	baseURL    string
	owner      string
	repo       string
	branch     string
	token      string
	committer  committer
}

type committer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

var _ FileStore = (*GitHubStore)(nil)

// NewGitHubStore builds a GitHubStore from config. Outgoing requests carry the
// configured timeout and are traced via otelhttp.
func NewGitHubStore(cfg config.GitHubConfig) (*GitHubStore, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github owner and repo are required")
	}

	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &GitHubStore{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: baseURL,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		branch:  cfg.Branch,
		token:   cfg.Token,
		committer: committer{
			Name:  cfg.CommitterName,
			Email: cfg.CommitterEmail,
		},
	}, nil
}

func (g *GitHubStore) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.baseURL, g.owner, g.repo, path)
}

func (g *GitHubStore) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "token "+g.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
}

// Get fetches the file at path on the configured branch and decodes its
// base64 content.
func (g *GitHubStore) Get(ctx context.Context, path string) (File, error) {
	u := g.contentsURL(path)
	if g.branch != "" {
		u += "?ref=" + url.QueryEscape(g.branch)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return File{}, fmt.Errorf("create request: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return File{}, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return File{}, ErrFileNotFound
	default:
		return File{}, fmt.Errorf("get %s: unexpected status %d: %s", path, resp.StatusCode, readErrorBody(resp.Body))
	}

	var payload struct {
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return File{}, fmt.Errorf("decode response: %w", err)
	}

	// The API wraps base64 content across lines.
	raw, err := base64.StdEncoding.DecodeString(stripNewlines(payload.Content))
	if err != nil {
		return File{}, fmt.Errorf("decode content: %w", err)
	}

	return File{Content: raw, SHA: payload.SHA}, nil
}

// Put commits new content for the file at path. A 409 or 422 from the API
// means the provided sha was stale and is surfaced as ErrShaMismatch.
func (g *GitHubStore) Put(ctx context.Context, path string, content []byte, sha, message string) (string, error) {
	body := struct {
		Message   string     `json:"message"`
		Content   string     `json:"content"`
		SHA       string     `json:"sha,omitempty"`
		Branch    string     `json:"branch,omitempty"`
		Committer *committer `json:"committer,omitempty"`
	}{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     sha,
		Branch:  g.branch,
	}
	if g.committer.Name != "" {
		body.Committer = &g.committer
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.contentsURL(path), bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return "", ErrShaMismatch
	default:
		return "", fmt.Errorf("put %s: unexpected status %d: %s", path, resp.StatusCode, readErrorBody(resp.Body))
	}

	var payload struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return payload.Content.SHA, nil
}

func stripNewlines(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			continue
		}
		b = append(b, s[i])
	}
	return string(b)
}

// readErrorBody pulls a short error snippet for diagnostics without trusting
// the upstream body size.
func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(b))
}
