package models

import (
	"fmt"
	"strings"
	"time"
)

// CommitRecord is one commit from the default branch history
type CommitRecord struct {
	Headline              string          `json:"headline" yaml:"headline"`
	FullMessage           string          `json:"full_message" yaml:"full_message"`
	CommittedDate         time.Time       `json:"committed_date" yaml:"committed_date"`
	ChangedFiles          int             `json:"changed_files" yaml:"changed_files"`
	Additions             int             `json:"additions" yaml:"additions"`
	Deletions             int             `json:"deletions" yaml:"deletions"`
	ParentCount           int             `json:"parent_count" yaml:"parent_count"`
	AuthorName            string          `json:"author_name" yaml:"author_name"`
	AuthorEmail           string          `json:"author_email" yaml:"author_email"`
	AuthorLogin           string          `json:"author_login" yaml:"author_login"`
	AuthorAvatarURL       string          `json:"author_avatar_url,omitempty" yaml:"author_avatar_url,omitempty"`
	AssociatedPullRequest *PullRequestRef `json:"associated_pull_request,omitempty" yaml:"associated_pull_request,omitempty"`
}

// PullRequestRef is the first pull request associated with a commit
type PullRequestRef struct {
	Title  string `json:"title" yaml:"title"`
	Number int    `json:"number" yaml:"number"`
	URL    string `json:"url" yaml:"url"`
}

// AnalysisRequest identifies the history window to analyze
type AnalysisRequest struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Username string `json:"username,omitempty"`
	Count    int    `json:"count"`
}

// Validate checks required fields and the count bound
func (r AnalysisRequest) Validate(maxCount int) error {
	if strings.TrimSpace(r.Owner) == "" {
		return fmt.Errorf("owner is required")
	}
	if strings.TrimSpace(r.Repo) == "" {
		return fmt.Errorf("repo is required")
	}
	if r.Count < 1 || r.Count > maxCount {
		return fmt.Errorf("count must be between 1 and %d, got %d", maxCount, r.Count)
	}
	return nil
}

// FullName returns owner/repo
func (r AnalysisRequest) FullName() string {
	return r.Owner + "/" + r.Repo
}

// Contribution is one area of work described by the analysis
type Contribution struct {
	Area        string `json:"area" yaml:"area"`
	Description string `json:"description" yaml:"description"`
}

// AnalysisResult is the structured summary of a commit window
type AnalysisResult struct {
	ProjectOverview string         `json:"project_overview" yaml:"project_overview"`
	Contributions   []Contribution `json:"contributions" yaml:"contributions"`
	TechStack       []string       `json:"tech_stack" yaml:"tech_stack"`
	CodeHighlights  []string       `json:"code_highlights" yaml:"code_highlights"`
}

// Normalize replaces nil lists with empty ones
func (r *AnalysisResult) Normalize() {
	if r.Contributions == nil {
		r.Contributions = []Contribution{}
	}
	if r.TechStack == nil {
		r.TechStack = []string{}
	}
	if r.CodeHighlights == nil {
		r.CodeHighlights = []string{}
	}
}

// Mode records which path produced a result
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// Report is the outcome of a successful pipeline run
type Report struct {
	Request     AnalysisRequest `json:"request" yaml:"request"`
	Commits     []CommitRecord  `json:"commits" yaml:"commits"`
	Result      AnalysisResult  `json:"result" yaml:"result"`
	Markdown    string          `json:"markdown" yaml:"markdown"`
	Mode        Mode            `json:"mode" yaml:"mode"`
	GeneratedAt time.Time       `json:"generated_at" yaml:"generated_at"`
}

// LastAnalysis is the most recent completed run kept in local storage
type LastAnalysis struct {
	Owner     string          `json:"owner" yaml:"owner"`
	Repo      string          `json:"repo" yaml:"repo"`
	Username  string          `json:"username" yaml:"username"`
	Count     int             `json:"count" yaml:"count"`
	Markdown  string          `json:"markdown" yaml:"markdown"`
	Result    *AnalysisResult `json:"result,omitempty" yaml:"result,omitempty"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
}

// NewLastAnalysis builds the stored form of a report
func NewLastAnalysis(r *Report) LastAnalysis {
	res := r.Result
	return LastAnalysis{
		Owner:     r.Request.Owner,
		Repo:      r.Request.Repo,
		Username:  r.Request.Username,
		Count:     r.Request.Count,
		Markdown:  r.Markdown,
		Result:    &res,
		Timestamp: r.GeneratedAt,
	}
}

// SavedAnalysis is an entry of the saved-analyses list
type SavedAnalysis struct {
	ID string `json:"id" yaml:"id"`
	LastAnalysis
}

// RemoteSavedAnalysis is the backend's summary row for a saved analysis
type RemoteSavedAnalysis struct {
	ID          int       `json:"id" yaml:"id"`
	Owner       string    `json:"owner" yaml:"owner"`
	Repo        string    `json:"repo" yaml:"repo"`
	Username    string    `json:"username" yaml:"username"`
	CommitCount int       `json:"commit_count" yaml:"commit_count"`
	TechStack   []string  `json:"tech_stack" yaml:"tech_stack"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	Markdown    string    `json:"markdown,omitempty" yaml:"markdown,omitempty"`
}
