package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/gitfolio/internal/models"
)

func topLevelHeadings(doc string) []string {
	var out []string
	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(line, "# ") {
			out = append(out, strings.TrimPrefix(line, "# "))
		}
	}
	return out
}

func subHeadings(doc string) []string {
	var out []string
	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(line, "## ") {
			out = append(out, strings.TrimPrefix(line, "## "))
		}
	}
	return out
}

// section returns the lines between heading and the next top-level heading
func section(doc, heading string) string {
	start := strings.Index(doc, "# "+heading+"\n")
	if start == -1 {
		return ""
	}
	rest := doc[start+len(heading)+3:]
	if next := strings.Index(rest, "\n# "); next != -1 {
		rest = rest[:next]
	}
	return rest
}

func fullResult() models.AnalysisResult {
	return models.AnalysisResult{
		ProjectOverview: "A widget factory.",
		Contributions: []models.Contribution{
			{Area: "Auth", Description: "Added OAuth login."},
			{Area: "API", Description: "Paginated endpoints."},
		},
		TechStack:      []string{"Go", "PostgreSQL"},
		CodeHighlights: []string{"Streaming parser"},
	}
}

func TestFormatDeterministic(t *testing.T) {
	f := NewMarkdownFormatter("en")
	r := fullResult()
	assert.Equal(t, f.Format(r), f.Format(r))
}

func TestFormatFullResult(t *testing.T) {
	doc := NewMarkdownFormatter("en").Format(fullResult())

	assert.Equal(t,
		[]string{"Project Overview", "Contributions", "Tech Stack", "Code Highlights"},
		topLevelHeadings(doc))
	assert.Equal(t, []string{"Auth", "API"}, subHeadings(doc))

	assert.Contains(t, section(doc, "Project Overview"), "A widget factory.")
	assert.Contains(t, section(doc, "Tech Stack"), "- Go\n- PostgreSQL")
	assert.Contains(t, section(doc, "Code Highlights"), "- Streaming parser")

	for _, fallback := range []string{"No project overview", "No contributions", "No tech stack", "No code highlights"} {
		assert.NotContains(t, doc, fallback)
	}
}

func TestFormatEmptyResult(t *testing.T) {
	doc := NewMarkdownFormatter("en").Format(models.AnalysisResult{})

	assert.Len(t, topLevelHeadings(doc), 4)
	assert.Contains(t, section(doc, "Project Overview"), "No project overview was provided.")
	assert.Contains(t, section(doc, "Contributions"), "No contributions were provided.")
	assert.Contains(t, section(doc, "Tech Stack"), "No tech stack information was provided.")
	assert.Contains(t, section(doc, "Code Highlights"), "No code highlights were provided.")
}

func TestFormatPlaceholders(t *testing.T) {
	doc := NewMarkdownFormatter("en").Format(models.AnalysisResult{
		Contributions: []models.Contribution{
			{Area: "", Description: "Only a description"},
			{Area: "Only an area"},
		},
		TechStack: []string{"Go", "  "},
	})

	assert.Equal(t, []string{"No data", "Only an area"}, subHeadings(doc))
	assert.Contains(t, section(doc, "Contributions"), "## Only an area\nNo data")
	assert.Contains(t, section(doc, "Tech Stack"), "- Go\n- No data")
}

func TestFormatEscapesHeadings(t *testing.T) {
	doc := NewMarkdownFormatter("en").Format(models.AnalysisResult{
		ProjectOverview: "Intro\n# Not a heading\n  ## nor this",
		Contributions:   []models.Contribution{{Area: "Multi\nline area", Description: "ok"}},
	})

	assert.Len(t, topLevelHeadings(doc), 4)
	assert.Contains(t, doc, `\# Not a heading`)
	assert.Contains(t, doc, `\## nor this`)
	assert.Equal(t, []string{"Multi line area"}, subHeadings(doc))
}

func TestFormatEscapesSetextUnderlines(t *testing.T) {
	doc := NewMarkdownFormatter("en").Format(models.AnalysisResult{
		ProjectOverview: "Intro line\n===",
		Contributions: []models.Contribution{
			{Area: "api", Description: "d\n==="},
			{Area: "cli", Description: "flags\n  ---  \nmore"},
		},
	})

	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		assert.NotRegexp(t, `^(=+|-+)$`, trimmed, "unescaped underline in %q", doc)
	}
	assert.Contains(t, doc, "Intro line\n\\===")
	assert.Contains(t, doc, "d\n\\===")
	assert.Contains(t, doc, "flags\n\\---")
	assert.Len(t, topLevelHeadings(doc), 4)
	assert.Equal(t, []string{"api", "cli"}, subHeadings(doc))
}

func TestFormatKorean(t *testing.T) {
	doc := NewMarkdownFormatter("ko").Format(models.AnalysisResult{
		Contributions: []models.Contribution{{Area: "인증"}},
	})

	assert.Equal(t,
		[]string{"프로젝트 개요 및 핵심 특징", "기여 내역", "기술 스택", "코드 기여 하이라이트"},
		topLevelHeadings(doc))
	assert.Contains(t, doc, "프로젝트 개요 정보가 제공되지 않았습니다.")
	assert.Contains(t, doc, "## 인증\n정보 없음")
}

func TestFormatUnknownLanguageFallsBack(t *testing.T) {
	assert.Equal(t, NewMarkdownFormatter("en").Format(fullResult()), NewMarkdownFormatter("fr").Format(fullResult()))
}

func TestFormatScenario(t *testing.T) {
	doc := NewMarkdownFormatter("en").Format(models.AnalysisResult{
		ProjectOverview: "Widget service",
		Contributions: []models.Contribution{
			{Area: "Core", Description: "Built the core"},
			{Area: "Docs", Description: "Wrote docs"},
		},
	})

	assert.Len(t, subHeadings(section(doc, "Contributions")), 2)
	assert.Contains(t, section(doc, "Tech Stack"), "No tech stack information was provided.")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "markdown": FormatMarkdown, "json": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("html")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	report := &models.Report{
		Request:     models.AnalysisRequest{Owner: "acme", Repo: "widget", Count: 5},
		Commits:     make([]models.CommitRecord, 3),
		Result:      fullResult(),
		Markdown:    "# doc\n",
		Mode:        models.ModeLocal,
		GeneratedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	var md bytes.Buffer
	require.NoError(t, Render(&md, report, FormatMarkdown))
	assert.Equal(t, "# doc\n", md.String())

	var js bytes.Buffer
	require.NoError(t, Render(&js, report, FormatJSON))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "acme", decoded["owner"])
	assert.Equal(t, float64(3), decoded["commits_analyzed"])
	assert.Equal(t, "2024-01-02T03:04:05Z", decoded["generated_at"])

	var ym bytes.Buffer
	require.NoError(t, Render(&ym, report, FormatYAML))
	var decodedYAML map[string]interface{}
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &decodedYAML))
	assert.Equal(t, "widget", decodedYAML["repo"])
	assert.Equal(t, "local", decodedYAML["mode"])
}
