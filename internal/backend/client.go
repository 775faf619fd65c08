package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/models"
)

// DefaultTimeout bounds a single backend request
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps the response text kept in error messages
const maxErrorBody = 512

// Client talks to the GitFolio analysis service over REST. State-changing
// requests carry a CSRF token fetched from the service and replay its session
// cookie.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for baseURL. A nil httpClient gets a fresh
// client with a cookie jar and the given timeout.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if httpClient.Jar == nil {
		// cookiejar.New only fails on a non-nil bad PublicSuffixList
		jar, _ := cookiejar.New(nil)
		httpClient.Jar = jar
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     slog.Default().With("component", "backend"),
	}
}

// BaseURL returns the service root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GenerateRequest is the payload of the generate endpoint
type GenerateRequest struct {
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	Username    string `json:"username"`
	Count       int    `json:"count"`
	GitHubToken string `json:"github_token,omitempty"`
}

// GenerateResponse is the service's analysis reply
type GenerateResponse struct {
	Success     bool            `json:"success"`
	Analysis    string          `json:"analysis"`
	RawAnalysis json.RawMessage `json:"raw_analysis"`
	Error       string          `json:"error,omitempty"`
}

// SaveCommitsRequest asks the service to persist a commit window
type SaveCommitsRequest struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// StoredCommit is one commit as listed by the service
type StoredCommit struct {
	SHA           string `json:"sha,omitempty" yaml:"sha,omitempty"`
	Message       string `json:"message" yaml:"message"`
	CommittedDate string `json:"committedDate" yaml:"committed_date"`
	Additions     int    `json:"additions" yaml:"additions"`
	Deletions     int    `json:"deletions" yaml:"deletions"`
}

// CSRFToken fetches a token and primes the session cookie
func (c *Client) CSRFToken(ctx context.Context) (string, error) {
	var resp struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := c.do(ctx, http.MethodGet, "/overview/csrf/", nil, "", &resp); err != nil {
		return "", err
	}
	if resp.CSRFToken == "" {
		return "", errors.SchemaErrorf(errors.OriginBackend, "csrf response has no csrfToken")
	}
	return resp.CSRFToken, nil
}

// Generate runs fetch and analysis on the service in one call
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	token, err := c.CSRFToken(ctx)
	if err != nil {
		return nil, err
	}

	var resp GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/overview/api/generate/", req, token, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("generate completed",
		"repo", req.Owner+"/"+req.Repo,
		"success", resp.Success,
		"analysis_length", len(resp.Analysis),
	)
	return &resp, nil
}

// SaveCommits asks the service to store the commit window
func (c *Client) SaveCommits(ctx context.Context, req SaveCommitsRequest) error {
	token, err := c.CSRFToken(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/overview/api/save-commits/", req, token, nil)
}

// ListCommits returns the commits the service stored for a window
func (c *Client) ListCommits(ctx context.Context, owner, repo, username string, count int) ([]StoredCommit, error) {
	q := url.Values{}
	q.Set("owner", owner)
	q.Set("repo", repo)
	q.Set("username", username)
	q.Set("count", strconv.Itoa(count))

	var resp struct {
		Commits []StoredCommit `json:"commits"`
	}
	if err := c.do(ctx, http.MethodGet, "/overview/api/commits/?"+q.Encode(), nil, "", &resp); err != nil {
		return nil, err
	}
	if resp.Commits == nil {
		resp.Commits = []StoredCommit{}
	}
	return resp.Commits, nil
}

// ListSaved returns the saved analyses kept by the service
func (c *Client) ListSaved(ctx context.Context) ([]models.RemoteSavedAnalysis, error) {
	var resp struct {
		Analyses []models.RemoteSavedAnalysis `json:"analyses"`
	}
	if err := c.do(ctx, http.MethodGet, "/overview/api/saved/", nil, "", &resp); err != nil {
		return nil, err
	}
	if resp.Analyses == nil {
		resp.Analyses = []models.RemoteSavedAnalysis{}
	}
	return resp.Analyses, nil
}

// GetSaved returns one saved analysis including its Markdown
func (c *Client) GetSaved(ctx context.Context, id int) (*models.RemoteSavedAnalysis, error) {
	var resp models.RemoteSavedAnalysis
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/overview/api/saved/%d/", id), nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteSaved removes a saved analysis
func (c *Client) DeleteSaved(ctx context.Context, id int) error {
	token, err := c.CSRFToken(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/overview/api/saved/%d/delete/", id), nil, token, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, csrfToken string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.InternalErrorf("encoding %s request: %v", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.ConfigErrorf("invalid backend url %q: %v", c.baseURL, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if csrfToken != "" {
		req.Header.Set("X-CSRFToken", csrfToken)
		// Django checks Referer on HTTPS requests
		req.Header.Set("Referer", c.baseURL+"/")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Upstream(errors.OriginBackend, 0, fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Upstream(errors.OriginBackend, resp.StatusCode, "reading backend response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.UpstreamStatus(errors.OriginBackend, resp.StatusCode, errorText(respBody))
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Upstream(errors.OriginBackend, resp.StatusCode, "malformed backend response", err)
	}
	return nil
}

// errorText prefers the service's {"error": "..."} message over raw body text
func errorText(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	text := string(body)
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return text
}
