package agent

import (
	"strings"

	"github.com/leefowlercu/memorizer/pkg/types"
)

// codingExtensions is the closed set of extensions that mark a folder as
// the "coding" domain.
var codingExtensions = map[string]bool{
	"rs": true, "py": true, "js": true, "ts": true, "go": true, "java": true,
	"cpp": true, "cc": true, "cxx": true, "c": true, "h": true, "hpp": true,
	"rb": true, "php": true, "swift": true, "kt": true, "scala": true,
	"cs": true, "lua": true, "sh": true, "jsx": true, "tsx": true,
}

// subcategoryForExt maps a majority source extension to its project
// subcategory label.
var subcategoryForExt = map[string]string{
	"rs":  "rust-projects",
	"py":  "python-projects",
	"js":  "javascript-projects",
	"ts":  "javascript-projects",
	"jsx": "javascript-projects",
	"tsx": "javascript-projects",
	"go":  "go-projects",
}

// DetectDomain implements the heuristic, total domain-classification
// algorithm. It never fails: every input resolves to one
// of the four domains.
func DetectDomain(folderSummary string, extensions []string, existingDomains []string) types.DomainDetection {
	lower := strings.ToLower(folderSummary)

	domain, subcategory, confidence := classify(lower, extensions)

	isNew := true
	for _, d := range existingDomains {
		if strings.EqualFold(d, domain) {
			isNew = false
			break
		}
	}

	return types.DomainDetection{
		Domain:      domain,
		Subcategory: subcategory,
		IsNewDomain: isNew,
		Confidence:  confidence,
	}
}

func classify(lowerSummary string, extensions []string) (domain, subcategory string, confidence float64) {
	if counts := codingExtensionCounts(extensions); len(counts) > 0 {
		return "coding", majoritySubcategory(counts), 0.8
	}

	if containsAny(lowerSummary, "recipe", "ingredient", "cook", "bake") {
		return "cooking", "recipes", 0.7
	}

	if containsAny(lowerSummary, "meeting", "project", "deadline", "report") {
		return "work", "", 0.6
	}

	return "other", "", 0.3
}

func codingExtensionCounts(extensions []string) map[string]int {
	counts := make(map[string]int)
	for _, ext := range extensions {
		e := strings.ToLower(strings.TrimPrefix(ext, "."))
		if codingExtensions[e] {
			counts[e]++
		}
	}
	return counts
}

// majoritySubcategory picks the subcategory for the most frequent
// recognized extension, breaking ties by a fixed preference order so the
// result is deterministic.
func majoritySubcategory(counts map[string]int) string {
	preference := []string{"rs", "py", "js", "ts", "jsx", "tsx", "go"}

	best := ""
	bestCount := 0
	for _, ext := range preference {
		if c, ok := counts[ext]; ok && c > bestCount {
			best = ext
			bestCount = c
		}
	}
	if best == "" {
		return ""
	}
	return subcategoryForExt[best]
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
