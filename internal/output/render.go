package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/gitfolio/internal/models"
)

// Format selects how a report is written to the terminal
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ParseFormat validates a user-supplied format name
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatMarkdown, "":
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected markdown, json or yaml)", s)
	}
}

// reportView is the machine-readable shape of a report
type reportView struct {
	Owner       string                `json:"owner" yaml:"owner"`
	Repo        string                `json:"repo" yaml:"repo"`
	Username    string                `json:"username,omitempty" yaml:"username,omitempty"`
	Count       int                   `json:"count" yaml:"count"`
	Commits     int                   `json:"commits_analyzed" yaml:"commits_analyzed"`
	Mode        models.Mode           `json:"mode" yaml:"mode"`
	GeneratedAt string                `json:"generated_at" yaml:"generated_at"`
	Result      models.AnalysisResult `json:"result" yaml:"result"`
	Markdown    string                `json:"markdown" yaml:"markdown"`
}

// Render writes the report in the requested format
func Render(w io.Writer, report *models.Report, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view(report))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view(report)); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, report.Markdown)
		return err
	}
}

// RenderLast writes a stored analysis in the requested format
func RenderLast(w io.Writer, last models.LastAnalysis, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(last)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(last); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, last.Markdown)
		return err
	}
}

func view(r *models.Report) reportView {
	return reportView{
		Owner:       r.Request.Owner,
		Repo:        r.Request.Repo,
		Username:    r.Request.Username,
		Count:       r.Request.Count,
		Commits:     len(r.Commits),
		Mode:        r.Mode,
		GeneratedAt: r.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Result:      r.Result,
		Markdown:    r.Markdown,
	}
}
