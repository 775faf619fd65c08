package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rohankatakam/gitfolio/internal/errors"
	"github.com/rohankatakam/gitfolio/internal/models"
)

// Tool names
const (
	ToolNameAnalyze = "analyze_repository"
	ToolNameLast    = "get_last_analysis"
)

const (
	analyzeToolDescription = "Summarize a GitHub repository's recent commit history as a portfolio overview " +
		"(project overview, contributions, tech stack, code highlights). " +
		"Optionally restricted to one author."

	lastToolDescription = "Return the most recent completed repository analysis as Markdown."
)

// AnalyzeInput is the input schema for analyze_repository
type AnalyzeInput struct {
	Owner    string `json:"owner"              jsonschema:"repository owner (user or organization)"`
	Repo     string `json:"repo"               jsonschema:"repository name"`
	Username string `json:"username,omitempty" jsonschema:"only analyze commits by this GitHub login or email"`
	Count    int    `json:"count,omitempty"    jsonschema:"number of recent commits to analyze (default 20)"`
	Format   string `json:"format,omitempty"   jsonschema:"markdown (default) or json"`
}

// LastInput is the (empty) input schema for get_last_analysis
type LastInput struct{}

// ToolOutput is the structured output of every tool
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleAnalyze(ctx context.Context, _ *mcpsdk.CallToolRequest, in AnalyzeInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if strings.TrimSpace(in.Owner) == "" || strings.TrimSpace(in.Repo) == "" {
		return errorResult(fmt.Errorf("owner and repo are required"))
	}
	if in.Format != "" && in.Format != "markdown" && in.Format != "json" {
		return errorResult(fmt.Errorf("unknown format %q (expected markdown or json)", in.Format))
	}

	count := in.Count
	if count == 0 {
		count = s.defaultCount
	}

	report, err := s.runner.RunAnalysis(ctx, models.AnalysisRequest{
		Owner:    strings.TrimSpace(in.Owner),
		Repo:     strings.TrimSpace(in.Repo),
		Username: strings.TrimSpace(in.Username),
		Count:    count,
	})
	if err != nil {
		s.logger.Warn("analyze_repository failed", "repo", in.Owner+"/"+in.Repo, "error", err)
		return errorResult(describe(err))
	}

	if in.Format == "json" {
		return jsonResult(report.Result)
	}
	return textResult(report.Markdown, report.Result)
}

func (s *Server) handleLast(ctx context.Context, _ *mcpsdk.CallToolRequest, _ LastInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	last, found, err := s.archive.Last(ctx)
	if err != nil {
		return errorResult(describe(err))
	}
	if !found {
		return textResult("No analysis has been run yet.", nil)
	}

	header := fmt.Sprintf("<!-- %s/%s, %d commits, %s -->\n", last.Owner, last.Repo, last.Count, last.Timestamp.UTC().Format("2006-01-02 15:04 MST"))
	return textResult(header+last.Markdown, last)
}

// describe prefixes the error kind so clients can tell failures apart
func describe(err error) error {
	e, ok := errors.As(err)
	if !ok {
		return err
	}
	tag := e.Type.String()
	if e.Origin != errors.OriginNone {
		tag += "/" + string(e.Origin)
	}
	return fmt.Errorf("[%s] %w", tag, err)
}

func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

func textResult(text string, data any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: text},
		},
	}, ToolOutput{Data: data}, nil
}

func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}
	return textResult(string(data), value)
}
