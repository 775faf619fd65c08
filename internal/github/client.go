package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/gitfolio/internal/errors"
)

const (
	DefaultGraphQLURL = "https://api.github.com/graphql"
	DefaultAPIURL     = "https://api.github.com/"
)

// Options configures a Fetcher
type Options struct {
	GraphQLURL string
	// APIURL is the REST base used to resolve logins to node IDs
	APIURL string
	// RateLimit in requests per second
	RateLimit int
	// AuthorFilter enables restricting history to a user's commits
	AuthorFilter bool
	HTTPClient   *http.Client
}

// Fetcher reads bounded commit history windows with rate limiting
type Fetcher struct {
	httpClient   *http.Client
	graphqlURL   string
	apiURL       string
	authorFilter bool
	rateLimiter  *rate.Limiter
	logger       *slog.Logger
}

// NewFetcher creates a fetcher. Tokens are supplied per call.
func NewFetcher(opts Options) *Fetcher {
	if opts.GraphQLURL == "" {
		opts.GraphQLURL = DefaultGraphQLURL
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Fetcher{
		httpClient:   opts.HTTPClient,
		graphqlURL:   opts.GraphQLURL,
		apiURL:       opts.APIURL,
		authorFilter: opts.AuthorFilter,
		rateLimiter:  rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		logger:       slog.Default().With("component", "github_fetcher"),
	}
}

// restClient builds a go-github client for token
func (f *Fetcher) restClient(token string) (*github.Client, error) {
	client := github.NewClient(f.httpClient).WithAuthToken(token)
	if f.apiURL != DefaultAPIURL {
		base := f.apiURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, errors.ConfigErrorf("invalid github.api_url %q: %v", f.apiURL, err)
		}
		client.BaseURL = u
	}
	return client, nil
}

// resolveAuthor turns a username into the GraphQL CommitAuthor filter.
// Email addresses filter by author email; logins are resolved to node IDs.
func (f *Fetcher) resolveAuthor(ctx context.Context, token, username string) (map[string]interface{}, error) {
	username = strings.TrimSpace(username)
	if !f.authorFilter || username == "" {
		return nil, nil
	}

	if strings.Contains(username, "@") {
		return map[string]interface{}{"emails": []string{username}}, nil
	}

	if err := f.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	client, err := f.restClient(token)
	if err != nil {
		return nil, err
	}

	user, resp, err := client.Users.Get(ctx, username)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, errors.Upstream(errors.OriginGitHub, status, fmt.Sprintf("failed to resolve GitHub user %q", username), err)
	}

	nodeID := user.GetNodeID()
	if nodeID == "" {
		return nil, errors.SchemaErrorf(errors.OriginGitHub, "GitHub user %q has no node id", username)
	}

	f.logger.Debug("author resolved", "login", username, "node_id", nodeID)
	return map[string]interface{}{"id": nodeID}, nil
}
