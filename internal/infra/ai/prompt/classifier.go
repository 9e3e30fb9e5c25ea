package prompt

import (
	"fmt"
	"strings"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt(labels []string) string {
	return fmt.Sprintf(`You are a news credibility classifier. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- label must be exactly one of: %[1]s.
- probs lists one probability per label, in the order %[1]s, and sums to 1.0.
- confidence equals the probability of the chosen label.
- highlights are short spans copied verbatim from the text that drove the decision, at most 8, each with a score between 0 and 1.
- summary is one sentence.

Schema (example with empty values):
{
  "label": "<%[2]s>",
  "confidence": 0.0,
  "probs": [%[3]s],
  "explanation": {
    "summary": "<string>",
    "method": "llm_rationale_v1",
    "highlights": [{"span": "<string>", "score": 0.0}]
  }
}`, strings.Join(labels, ", "), strings.Join(labels, "|"), zeros(len(labels)))
}

// GetUserPrompt wraps the submitted text. Only the text is sent, never its source.
func GetUserPrompt(text string) string {
	return "Classify the following text and respond with the JSON per schema.\n\nTEXT:\n" + text
}

func zeros(n int) string {
	z := make([]string, n)
	for i := range z {
		z[i] = "0.0"
	}
	return strings.Join(z, ", ")
}
