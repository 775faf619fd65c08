package analysis

import (
	"fmt"
)

// SystemPrompt frames the model as a commit-to-JSON extraction helper
const SystemPrompt = "You are an assistant that reads git commit messages and extracts structured information about a developer's work. Always answer with a single JSON object."

const userPromptTemplate = `Below is a list of commits from a GitHub repository. Analyze them and return a project overview for a developer portfolio.

Respond with JSON in exactly this shape:

` + "```json" + `
{
  "project_overview": "One or two paragraphs describing the project and its key features",
  "contributions": [
    {"area": "Area of work", "description": "What was done in this area"}
  ],
  "tech_stack": ["Technology", "..."],
  "code_highlights": ["Notable implementation detail", "..."]
}
` + "```" + `
%s
Commits:
%s
`

// BuildUserPrompt embeds the digest into the extraction instruction.
// language "ko" asks for Korean values; keys stay in English.
func BuildUserPrompt(digest, language string) string {
	extra := ""
	if language == "ko" {
		extra = "\nWrite every value in Korean. Keep the JSON keys in English.\n"
	}
	return fmt.Sprintf(userPromptTemplate, extra, digest)
}
