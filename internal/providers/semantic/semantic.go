// Package semantic provides LLM-backed SemanticProvider implementations
// (OpenAI, Google) plus the Analyzer adapter that plugs a provider into the
// agent orchestrator as its DocumentAnalyzer. Providers are thin: one
// request per document, a shared JSON response contract, and rate limiting
// via the providers package.
package semantic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leefowlercu/memorizer/internal/providers"
)

// analysisVersion is bumped whenever the prompt or response contract
// changes, invalidating cached analyses.
const analysisVersion = 1

// systemPrompt instructs the model to produce the JSON contract
// parseAnalysisResponse expects.
const systemPrompt = `You are a document analyst for a personal knowledge tree.
Given one document, respond with a single JSON object and nothing else:
{
  "summary": "one to three sentences describing the document",
  "topics": ["lowercase-topic", ...],
  "entities": [{"name": "...", "type": "person|project|technology|date|location|organization|url|email|concept|file"}],
  "keywords": ["important term", ...],
  "suggested_domain": "coding|cooking|work|other or an existing domain name",
  "confidence": 0.0
}
Prefer one of the existing domains when any fits. Keep topics short and
normalized (lowercase, hyphenated). confidence is your overall confidence
in this analysis, between 0 and 1.`

// buildUserPrompt renders one document into the user message.
func buildUserPrompt(input providers.SemanticInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", input.Path)
	if input.Extension != "" {
		fmt.Fprintf(&b, "Extension: %s\n", input.Extension)
	}
	if input.ParentFolder != "" {
		fmt.Fprintf(&b, "Folder: %s\n", input.ParentFolder)
	}
	if len(input.ExistingDomains) > 0 {
		fmt.Fprintf(&b, "Existing domains: %s\n", strings.Join(input.ExistingDomains, ", "))
	}
	if input.Truncated {
		b.WriteString("Note: content truncated.\n")
	}
	b.WriteString("\nContent:\n")
	b.WriteString(input.Text)
	return b.String()
}

// parseAnalysisResponse decodes the model's JSON reply, tolerating a fenced
// code block around the object.
func parseAnalysisResponse(text string) (*providers.SemanticResult, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var result providers.SemanticResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("decoding analysis JSON; %w", err)
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return &result, nil
}
