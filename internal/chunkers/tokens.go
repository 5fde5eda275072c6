package chunkers

// CountTokens estimates the token count of text using the len/4
// heuristic. This package does not depend on any
// model-specific tokenizer; the estimate is intentionally approximate
// and is the same function the chunker uses internally to compare
// against MaxTokens/MinTokens.
func CountTokens(text string) int {
	return estimateTokens(text)
}

// EstimateTokens is an alias for CountTokens kept for callers outside
// this package that chunk byte content.
func EstimateTokens(text string) int {
	return estimateTokens(text)
}

// EstimateTokensBytes estimates the token count of byte content.
func EstimateTokensBytes(content []byte) int {
	return estimateTokens(string(content))
}
