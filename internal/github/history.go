package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/models"
)

const historyQuery = `query($owner: String!, $name: String!, $first: Int!, $author: CommitAuthor) {
  repository(owner: $owner, name: $name) {
    defaultBranchRef {
      target {
        ... on Commit {
          history(first: $first, author: $author) {
            edges {
              node {
                messageHeadline
                message
                committedDate
                changedFiles
                additions
                deletions
                parents(first: 1) { totalCount }
                author { name email user { login avatarUrl } }
                associatedPullRequests(first: 1) { nodes { title number url } }
              }
            }
          }
        }
      }
    }
  }
}`

// maxResponseBytes caps the history payload read into memory
const maxResponseBytes = 16 << 20

// HistoryQuery selects a window of default-branch history
type HistoryQuery struct {
	Owner  string
	Repo   string
	Author string
	Count  int
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type historyResponse struct {
	Data *struct {
		Repository *struct {
			DefaultBranchRef *struct {
				Target *struct {
					History *struct {
						Edges *[]historyEdge `json:"edges"`
					} `json:"history"`
				} `json:"target"`
			} `json:"defaultBranchRef"`
		} `json:"repository"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type historyEdge struct {
	Node *commitNode `json:"node"`
}

type commitNode struct {
	MessageHeadline string `json:"messageHeadline"`
	Message         string `json:"message"`
	CommittedDate   string `json:"committedDate"`
	ChangedFiles    *int   `json:"changedFiles"`
	Additions       *int   `json:"additions"`
	Deletions       *int   `json:"deletions"`
	Parents         *struct {
		TotalCount int `json:"totalCount"`
	} `json:"parents"`
	Author *struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		User  *struct {
			Login     string `json:"login"`
			AvatarURL string `json:"avatarUrl"`
		} `json:"user"`
	} `json:"author"`
	AssociatedPullRequests *struct {
		Nodes []struct {
			Title  string `json:"title"`
			Number int    `json:"number"`
			URL    string `json:"url"`
		} `json:"nodes"`
	} `json:"associatedPullRequests"`
}

// edges returns the history edges, or nil when any link of the path is absent
func (r *historyResponse) edges() *[]historyEdge {
	if r.Data == nil || r.Data.Repository == nil || r.Data.Repository.DefaultBranchRef == nil {
		return nil
	}
	target := r.Data.Repository.DefaultBranchRef.Target
	if target == nil || target.History == nil {
		return nil
	}
	return target.History.Edges
}

// FetchCommits returns up to q.Count commits from the default branch of
// q.Owner/q.Repo, newest first, optionally restricted to q.Author.
func (f *Fetcher) FetchCommits(ctx context.Context, token string, q HistoryQuery) ([]models.CommitRecord, error) {
	if q.Count < 1 {
		return nil, errors.ValidationErrorf("commit count must be positive, got %d", q.Count)
	}

	author, err := f.resolveAuthor(ctx, token, q.Author)
	if err != nil {
		return nil, err
	}

	vars := map[string]interface{}{
		"owner": q.Owner,
		"name":  q.Repo,
		"first": q.Count,
	}
	if author != nil {
		vars["author"] = author
	}

	body, err := json.Marshal(graphQLRequest{Query: historyQuery, Variables: vars})
	if err != nil {
		return nil, errors.InternalErrorf("encode graphql request: %v", err)
	}

	if err := f.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.ConfigErrorf("invalid github.graphql_url %q: %v", f.graphqlURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errors.Upstream(errors.OriginGitHub, 0, "GitHub GraphQL request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Upstream(errors.OriginGitHub, resp.StatusCode, "failed to read GitHub response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.UpstreamStatus(errors.OriginGitHub, resp.StatusCode, string(raw))
	}

	var parsed historyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.Upstream(errors.OriginGitHub, resp.StatusCode, "GitHub returned a malformed response body", err)
	}

	edges := parsed.edges()
	if edges == nil {
		if len(parsed.Errors) > 0 {
			return nil, errors.SchemaErrorf(errors.OriginGitHub,
				"no commit history for %s/%s: %s", q.Owner, q.Repo, parsed.Errors[0].Message)
		}
		return nil, errors.SchemaErrorf(errors.OriginGitHub,
			"no commit history for %s/%s: repository or default branch not found", q.Owner, q.Repo)
	}
	for _, gqlErr := range parsed.Errors {
		f.logger.Warn("partial GraphQL error ignored", "repo", q.Owner+"/"+q.Repo, "error", gqlErr.Message)
	}

	commits := f.normalize(*edges, q.Count)

	f.logger.Debug("commits fetched",
		"repo", q.Owner+"/"+q.Repo,
		"requested", q.Count,
		"returned", len(commits),
		"author_filter", author != nil,
		"duration_ms", time.Since(start).Milliseconds())

	return commits, nil
}

// normalize converts edges into records, skipping null or undatable nodes
// and capping the list at limit.
func (f *Fetcher) normalize(edges []historyEdge, limit int) []models.CommitRecord {
	commits := make([]models.CommitRecord, 0, min(len(edges), limit))

	for _, edge := range edges {
		if len(commits) == limit {
			break
		}
		n := edge.Node
		if n == nil {
			continue
		}

		committed, err := time.Parse(time.RFC3339, n.CommittedDate)
		if err != nil {
			f.logger.Warn("skipping commit with invalid date", "date", n.CommittedDate, "headline", n.MessageHeadline)
			continue
		}

		record := models.CommitRecord{
			Headline:      n.MessageHeadline,
			FullMessage:   n.Message,
			CommittedDate: committed,
			ChangedFiles:  nonNegative(n.ChangedFiles),
			Additions:     nonNegative(n.Additions),
			Deletions:     nonNegative(n.Deletions),
		}
		if n.Parents != nil && n.Parents.TotalCount > 0 {
			record.ParentCount = n.Parents.TotalCount
		}
		if n.Author != nil {
			record.AuthorName = n.Author.Name
			record.AuthorEmail = n.Author.Email
			if n.Author.User != nil {
				record.AuthorLogin = n.Author.User.Login
				record.AuthorAvatarURL = n.Author.User.AvatarURL
			}
		}
		if n.AssociatedPullRequests != nil && len(n.AssociatedPullRequests.Nodes) > 0 {
			pr := n.AssociatedPullRequests.Nodes[0]
			record.AssociatedPullRequest = &models.PullRequestRef{Title: pr.Title, Number: pr.Number, URL: pr.URL}
		}
		if record.FullMessage == "" {
			record.FullMessage = record.Headline
		}

		commits = append(commits, record)
	}

	return commits
}

func nonNegative(v *int) int {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}
