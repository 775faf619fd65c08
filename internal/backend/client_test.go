package backend

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/gitfolio/internal/errors"
)

const testCSRF = "csrf-abc"

// newTestServer emulates the service: the csrf view sets a session cookie
// and every unsafe request must echo both cookie and token.
func newTestServer(t *testing.T, mux *http.ServeMux) *httptest.Server {
	mux.HandleFunc("/overview/csrf/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: testCSRF, Path: "/"})
		fmt.Fprintf(w, `{"csrfToken": %q}`, testCSRF)
	})
	return httptest.NewServer(mux)
}

func requireCSRF(t *testing.T, r *http.Request) bool {
	cookie, err := r.Cookie("csrftoken")
	ok := assert.NoError(t, err) &&
		assert.Equal(t, testCSRF, cookie.Value) &&
		assert.Equal(t, testCSRF, r.Header.Get("X-CSRFToken"))
	return ok
}

func TestGenerate(t *testing.T) {
	mux := http.NewServeMux()
	var got GenerateRequest
	mux.HandleFunc("/overview/api/generate/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if !requireCSRF(t, r) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{
			"success": true,
			"analysis": "# Project Overview\n...",
			"raw_analysis": {"project_overview": "Widgets", "tech_stack": ["Go"]}
		}`)
	})
	srv := newTestServer(t, mux)
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second, nil)
	resp, err := c.Generate(context.Background(), GenerateRequest{
		Owner: "acme", Repo: "widget", Username: "alice", Count: 5, GitHubToken: "ghp_x",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, GenerateRequest{Owner: "acme", Repo: "widget", Username: "alice", Count: 5, GitHubToken: "ghp_x"}, got)

	result, err := resp.Result()
	require.NoError(t, err)
	assert.Equal(t, "Widgets", result.ProjectOverview)
	assert.Equal(t, []string{"Go"}, result.TechStack)
	assert.Empty(t, result.Contributions)
}

func TestGenerateUpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/overview/api/generate/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error": "GitHub API 오류: 404"}`)
	})
	srv := newTestServer(t, mux)
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, nil).Generate(context.Background(), GenerateRequest{Owner: "a", Repo: "b", Count: 1})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUpstream))
	assert.Equal(t, errors.OriginBackend, errors.GetOrigin(err))
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "GitHub API 오류: 404")
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second, nil).ListSaved(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeUpstream, errors.GetType(err))
	assert.Equal(t, errors.OriginBackend, errors.GetOrigin(err))
}

func TestGenerateResponseResult(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		overview string
		wantErr  bool
		kind     errors.ErrorType
	}{
		{name: "object", raw: `{"project_overview": "A"}`, overview: "A"},
		{name: "string with fence", raw: `"Result:\n` + "```json" + `\n{\"project_overview\": \"B\"}\n` + "```" + `"`, overview: "B"},
		{name: "parse failure shape", raw: `{"error": "JSON 파싱 실패", "rawContent": "text {\"project_overview\": \"C\"}"}`, overview: "C"},
		{name: "parse failure without json", raw: `{"error": "JSON 파싱 실패", "rawContent": "nothing"}`, wantErr: true, kind: errors.ErrorTypeExtraction},
		{name: "absent", raw: ``, wantErr: true, kind: errors.ErrorTypeSchema},
		{name: "null", raw: `null`, wantErr: true, kind: errors.ErrorTypeSchema},
		{name: "array", raw: `[1, 2]`, wantErr: true, kind: errors.ErrorTypeSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &GenerateResponse{RawAnalysis: json.RawMessage(tt.raw)}
			result, err := resp.Result()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.kind, errors.GetType(err))
				if tt.kind == errors.ErrorTypeSchema {
					assert.Equal(t, errors.OriginBackend, errors.GetOrigin(err))
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.overview, result.ProjectOverview)
			assert.NotNil(t, result.TechStack)
		})
	}
}

func TestSaveAndListCommits(t *testing.T) {
	mux := http.NewServeMux()
	var saved int32
	mux.HandleFunc("/overview/api/save-commits/", func(w http.ResponseWriter, r *http.Request) {
		if !requireCSRF(t, r) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var req SaveCommitsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 5, req.Count)
		atomic.AddInt32(&saved, 1)
		fmt.Fprint(w, `{"success": true}`)
	})
	mux.HandleFunc("/overview/api/commits/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acme", r.URL.Query().Get("owner"))
		assert.Equal(t, "widget", r.URL.Query().Get("repo"))
		assert.Equal(t, "alice", r.URL.Query().Get("username"))
		assert.Equal(t, "5", r.URL.Query().Get("count"))
		fmt.Fprint(w, `{"commits": [{"message": "init", "committedDate": "2024-01-01T00:00:00Z", "additions": 3, "deletions": 1}]}`)
	})
	srv := newTestServer(t, mux)
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	ctx := context.Background()

	require.NoError(t, c.SaveCommits(ctx, SaveCommitsRequest{Owner: "acme", Repo: "widget", Username: "alice", Count: 5}))
	assert.Equal(t, int32(1), atomic.LoadInt32(&saved))

	commits, err := c.ListCommits(ctx, "acme", "widget", "alice", 5)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, StoredCommit{Message: "init", CommittedDate: "2024-01-01T00:00:00Z", Additions: 3, Deletions: 1}, commits[0])
}

func TestSavedAnalyses(t *testing.T) {
	mux := http.NewServeMux()
	deleted := false
	mux.HandleFunc("/overview/api/saved/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"analyses": [{"id": 7, "owner": "acme", "repo": "widget", "username": "alice", "commit_count": 20, "tech_stack": ["Go"], "created_at": "2024-05-01T10:00:00Z"}]}`)
	})
	mux.HandleFunc("/overview/api/saved/7/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 7, "owner": "acme", "repo": "widget", "username": "alice", "commit_count": 20, "created_at": "2024-05-01T10:00:00Z", "markdown": "# Project Overview"}`)
	})
	mux.HandleFunc("/overview/api/saved/7/delete/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		if !requireCSRF(t, r) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		deleted = true
		fmt.Fprint(w, `{"success": true}`)
	})
	mux.HandleFunc("/overview/api/saved/8/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
	})
	srv := newTestServer(t, mux)
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	ctx := context.Background()

	list, err := c.ListSaved(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 7, list[0].ID)
	assert.Equal(t, []string{"Go"}, list[0].TechStack)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), list[0].CreatedAt)

	one, err := c.GetSaved(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "# Project Overview", one.Markdown)

	_, err = c.GetSaved(ctx, 8)
	require.Error(t, err)
	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, e.Context["status"])

	require.NoError(t, c.DeleteSaved(ctx, 7))
	assert.True(t, deleted)
}
