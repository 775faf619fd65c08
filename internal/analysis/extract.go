package analysis

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rohankatakam/gitfolio/internal/errors"
)

// Strategy proposes JSON candidates found in free-form model output.
// Candidates are tried in order; the first that parses as an object wins.
type Strategy struct {
	Name       string
	Candidates func(text string) []string
}

var fencePattern = regexp.MustCompile("(?s)```[ \\t]*(?:json|JSON)?[ \\t]*\\r?\\n?(.*?)```")

// FencedBlock finds ```json ... ``` (or bare ```) code blocks
var FencedBlock = Strategy{
	Name: "fenced_block",
	Candidates: func(text string) []string {
		var out []string
		for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
			if body := strings.TrimSpace(m[1]); body != "" {
				out = append(out, body)
			}
		}
		return out
	},
}

// BraceSpan finds balanced top-level {...} spans, then falls back to the
// span from the first "{" to the last "}".
var BraceSpan = Strategy{
	Name: "brace_span",
	Candidates: func(text string) []string {
		out := balancedSpans(text)

		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start != -1 && end > start {
			greedy := text[start : end+1]
			if len(out) == 0 || out[len(out)-1] != greedy {
				out = append(out, greedy)
			}
		}
		return out
	},
}

// DefaultStrategies is the extraction chain used by the analyzer
var DefaultStrategies = []Strategy{FencedBlock, BraceSpan}

// Extract returns the first JSON object found by strategies along with the
// name of the strategy that found it. It fails with an extraction error
// carrying the start of raw when nothing parses.
func Extract(raw string, strategies ...Strategy) (map[string]interface{}, string, error) {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}

	for _, s := range strategies {
		for _, candidate := range s.Candidates(raw) {
			var obj map[string]interface{}
			if err := json.Unmarshal([]byte(candidate), &obj); err == nil && obj != nil {
				return obj, s.Name, nil
			}
		}
	}

	return nil, "", errors.ExtractionError(raw)
}

// balancedSpans scans for top-level brace-balanced spans, ignoring braces
// inside JSON string literals. A "{" that never closes is skipped and the
// scan resumes at the next "{" after it.
func balancedSpans(text string) []string {
	var spans []string

	for pos := 0; pos < len(text); {
		open := strings.IndexByte(text[pos:], '{')
		if open == -1 {
			break
		}
		start := pos + open

		end, ok := closingBrace(text, start)
		if !ok {
			pos = start + 1
			continue
		}
		spans = append(spans, text[start:end+1])
		pos = end + 1
	}

	return spans
}

// closingBrace returns the index of the "}" that balances the "{" at start
func closingBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}

	return -1, false
}
