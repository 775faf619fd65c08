package analysis

import (
	"encoding/json"

	"github.com/rohankatakam/gitfolio/internal/models"
)

// DefaultMaxMessageChars bounds each commit message in the digest
const DefaultMaxMessageChars = 2000

// digestEntry is the compact per-commit summary sent to the model
type digestEntry struct {
	Message      string `json:"message"`
	Date         string `json:"date"`
	FilesChanged int    `json:"files_changed"`
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`
}

// BuildDigest renders commits as an indented JSON array. Messages longer
// than maxMessageChars runes are truncated.
func BuildDigest(commits []models.CommitRecord, maxMessageChars int) string {
	if maxMessageChars <= 0 {
		maxMessageChars = DefaultMaxMessageChars
	}

	entries := make([]digestEntry, 0, len(commits))
	for _, c := range commits {
		msg := c.FullMessage
		if msg == "" {
			msg = c.Headline
		}
		if r := []rune(msg); len(r) > maxMessageChars {
			msg = string(r[:maxMessageChars]) + "…"
		}

		entries = append(entries, digestEntry{
			Message:      msg,
			Date:         c.CommittedDate.UTC().Format("2006-01-02"),
			FilesChanged: c.ChangedFiles,
			Additions:    c.Additions,
			Deletions:    c.Deletions,
		})
	}

	// digestEntry has only string and int fields
	data, _ := json.MarshalIndent(entries, "", "  ")
	return string(data)
}
