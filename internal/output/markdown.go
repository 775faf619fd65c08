package output

import (
	"regexp"
	"strings"

	"github.com/rohankatakam/gitfolio/internal/models"
)

// Labels holds the headings and fallback text for one language
type Labels struct {
	Overview       string
	Contributions  string
	TechStack      string
	CodeHighlights string

	NoOverview       string
	NoContributions  string
	NoTechStack      string
	NoCodeHighlights string

	// Placeholder replaces a missing area or description
	Placeholder string
}

var labelsByLanguage = map[string]Labels{
	"en": {
		Overview:         "Project Overview",
		Contributions:    "Contributions",
		TechStack:        "Tech Stack",
		CodeHighlights:   "Code Highlights",
		NoOverview:       "No project overview was provided.",
		NoContributions:  "No contributions were provided.",
		NoTechStack:      "No tech stack information was provided.",
		NoCodeHighlights: "No code highlights were provided.",
		Placeholder:      "No data",
	},
	"ko": {
		Overview:         "프로젝트 개요 및 핵심 특징",
		Contributions:    "기여 내역",
		TechStack:        "기술 스택",
		CodeHighlights:   "코드 기여 하이라이트",
		NoOverview:       "프로젝트 개요 정보가 제공되지 않았습니다.",
		NoContributions:  "기여 내역 정보가 제공되지 않았습니다.",
		NoTechStack:      "기술 스택 정보가 제공되지 않았습니다.",
		NoCodeHighlights: "코드 기여 하이라이트 정보가 제공되지 않았습니다.",
		Placeholder:      "정보 없음",
	},
}

// LabelsFor returns the labels for language, defaulting to English
func LabelsFor(language string) Labels {
	if l, ok := labelsByLanguage[language]; ok {
		return l
	}
	return labelsByLanguage["en"]
}

// MarkdownFormatter renders an AnalysisResult as a Markdown document with
// four top-level sections in fixed order.
type MarkdownFormatter struct {
	labels Labels
}

// NewMarkdownFormatter creates a formatter for language ("en" or "ko")
func NewMarkdownFormatter(language string) *MarkdownFormatter {
	return &MarkdownFormatter{labels: LabelsFor(language)}
}

// Format renders result. It never fails and has no side effects.
func (f *MarkdownFormatter) Format(result models.AnalysisResult) string {
	l := f.labels
	var lines []string

	lines = append(lines, "# "+l.Overview)
	lines = append(lines, bodyOr(result.ProjectOverview, l.NoOverview)...)
	lines = append(lines, "")

	lines = append(lines, "# "+l.Contributions)
	if len(result.Contributions) == 0 {
		lines = append(lines, l.NoContributions, "")
	} else {
		for _, c := range result.Contributions {
			lines = append(lines, "## "+headingText(c.Area, l.Placeholder))
			lines = append(lines, bodyOr(c.Description, l.Placeholder)...)
			lines = append(lines, "")
		}
	}
	lines = append(lines, "")

	lines = append(lines, "# "+l.TechStack, "")
	lines = append(lines, bullets(result.TechStack, l.NoTechStack, l.Placeholder)...)
	lines = append(lines, "")

	lines = append(lines, "# "+l.CodeHighlights, "")
	lines = append(lines, bullets(result.CodeHighlights, l.NoCodeHighlights, l.Placeholder)...)

	return strings.Join(lines, "\n") + "\n"
}

// setextUnderline matches a line of = or - that would turn the line above
// it into a heading
var setextUnderline = regexp.MustCompile(`^\s*(=+|-+)\s*$`)

// bodyOr splits text into lines, escaping any that would parse as a heading
func bodyOr(text, fallback string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{fallback}
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "#") || setextUnderline.MatchString(line) {
			lines[i] = `\` + trimmed
		}
	}
	return lines
}

// headingText folds s to a single line
func headingText(s, placeholder string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return placeholder
	}
	return s
}

func bullets(items []string, fallback, placeholder string) []string {
	if len(items) == 0 {
		return []string{fallback}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, "- "+headingText(item, placeholder))
	}
	return out
}
