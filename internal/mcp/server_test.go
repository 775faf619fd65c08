package mcp

import (
	"context"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/models"
)

type fakeRunner struct {
	report *models.Report
	err    error
	got    models.AnalysisRequest
}

func (f *fakeRunner) RunAnalysis(ctx context.Context, req models.AnalysisRequest) (*models.Report, error) {
	f.got = req
	return f.report, f.err
}

type fakeArchive struct {
	last  models.LastAnalysis
	found bool
}

func (f fakeArchive) Last(ctx context.Context) (models.LastAnalysis, bool, error) {
	return f.last, f.found, nil
}

func connect(t *testing.T, srv *Server) (*mcpsdk.ClientSession, func()) {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	return session, func() {
		_ = session.Close()
		cancel()
		<-serverDone
	}
}

func textOf(t *testing.T, res *mcpsdk.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewServerRegistersTools(t *testing.T) {
	srv := NewServer(ServerDeps{Runner: &fakeRunner{}, Archive: fakeArchive{}})
	assert.Equal(t, []string{ToolNameAnalyze, ToolNameLast}, srv.ListToolNames())
}

func TestListTools(t *testing.T) {
	session, done := connect(t, NewServer(ServerDeps{Runner: &fakeRunner{}, Archive: fakeArchive{}}))
	defer done()

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolNameAnalyze, ToolNameLast}, names)
}

func TestAnalyzeRepositoryTool(t *testing.T) {
	runner := &fakeRunner{report: &models.Report{
		Markdown: "# Project Overview\nWidgets\n",
		Result:   models.AnalysisResult{ProjectOverview: "Widgets"},
	}}
	session, done := connect(t, NewServer(ServerDeps{Runner: runner, Archive: fakeArchive{}, DefaultCount: 15}))
	defer done()

	res, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      ToolNameAnalyze,
		Arguments: map[string]any{"owner": "acme", "repo": "widget", "username": "alice"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "# Project Overview\nWidgets\n", textOf(t, res))
	assert.Equal(t, models.AnalysisRequest{Owner: "acme", Repo: "widget", Username: "alice", Count: 15}, runner.got)

	res, err = session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      ToolNameAnalyze,
		Arguments: map[string]any{"owner": "acme", "repo": "widget", "count": 3, "format": "json"},
	})
	require.NoError(t, err)
	assert.Contains(t, textOf(t, res), `"project_overview": "Widgets"`)
	assert.Equal(t, 3, runner.got.Count)
}

func TestAnalyzeRepositoryToolErrors(t *testing.T) {
	runner := &fakeRunner{err: errors.CredentialMissing("github")}
	session, done := connect(t, NewServer(ServerDeps{Runner: runner, Archive: fakeArchive{}}))
	defer done()

	res, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      ToolNameAnalyze,
		Arguments: map[string]any{"owner": "acme", "repo": "widget"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "[CREDENTIAL_MISSING]")

	res, err = session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      ToolNameAnalyze,
		Arguments: map[string]any{"owner": "acme", "repo": "widget", "format": "pdf"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetLastAnalysisTool(t *testing.T) {
	session, done := connect(t, NewServer(ServerDeps{Runner: &fakeRunner{}, Archive: fakeArchive{}}))
	defer done()

	res, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: ToolNameLast, Arguments: map[string]any{}})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "No analysis has been run yet.", textOf(t, res))

	archive := fakeArchive{found: true, last: models.LastAnalysis{
		Owner: "acme", Repo: "widget", Count: 5,
		Markdown:  "# Project Overview\nok\n",
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}}
	session2, done2 := connect(t, NewServer(ServerDeps{Runner: &fakeRunner{}, Archive: archive}))
	defer done2()

	res, err = session2.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: ToolNameLast, Arguments: map[string]any{}})
	require.NoError(t, err)
	text := textOf(t, res)
	assert.Contains(t, text, "acme/widget, 5 commits, 2024-06-01 12:00 UTC")
	assert.Contains(t, text, "# Project Overview\nok\n")
}

func TestDescribe(t *testing.T) {
	err := describe(errors.UpstreamStatus(errors.OriginLLM, 429, "slow down"))
	assert.Contains(t, err.Error(), "[UPSTREAM/llm]")
}
