// Package chunkers implements a two-pass chunker: pass one segments text
// at structural boundaries
// (headers, fenced code, lists, paragraphs), pass two recursively
// splits any segment whose estimated token count still exceeds
// MaxTokens, and a final pass prefixes continuation chunks with
// overlap from their predecessor. The chunker is total: it never
// fails, and malformed input falls back to a single Text chunk.
package chunkers

import (
	"fmt"
	"strings"

	"github.com/leefowlercu/memorizer/pkg/types"
)

// Config controls chunking behavior.
type Config struct {
	// MaxTokens is the estimated-token ceiling a chunk may reach before
	// pass two recursively splits it.
	MaxTokens int

	// MinTokens is the estimated-token floor below which a chunk is
	// dropped, unless doing so would leave no chunks at all.
	MinTokens int

	// OverlapFraction, when > 0, prefixes each non-first chunk with the
	// last overlap_fraction*MaxTokens*4 characters of its predecessor.
	OverlapFraction float64

	// PreserveCodeBlocks, when true, never splits a fenced code block
	// regardless of its estimated size.
	PreserveCodeBlocks bool
}

// DefaultConfig returns the chunker's default configuration: large enough
// that ordinary documents and source files chunk at structural boundaries
// only, with no minimum size or overlap unless a caller asks for them.
func DefaultConfig() Config {
	return Config{
		MaxTokens:          2000,
		MinTokens:          0,
		OverlapFraction:    0,
		PreserveCodeBlocks: true,
	}
}

// Chunk splits text into an ordered sequence of types.Chunk, assigning
// each a stable id derived from source and its position. Offsets reference text itself; start_offset < end_offset <=
// len(text) and chunks cover text in order, with gaps permitted only at
// discarded whitespace.
func Chunk(text string, source string, cfg Config) []types.Chunk {
	if cfg.MaxTokens <= 0 {
		cfg = DefaultConfig()
	}
	if text == "" {
		return nil
	}

	segs := splitStructural(text)
	if len(segs) == 0 {
		segs = []segment{{content: text, typ: types.ChunkText, start: 0, end: len(text)}}
	}

	var split []segment
	for _, s := range segs {
		if s.typ == types.ChunkCode && cfg.PreserveCodeBlocks {
			split = append(split, s)
			continue
		}
		if estimateTokens(s.content) <= cfg.MaxTokens {
			split = append(split, s)
			continue
		}
		split = append(split, splitRecursive(s, cfg.MaxTokens)...)
	}

	split = dropUndersized(split, cfg.MinTokens)

	return toChunks(split, source, cfg)
}

// segment is pass one/two's working representation: a content span with
// its original-text offsets and any structural metadata discovered
// while parsing it.
type segment struct {
	content      string
	typ          types.ChunkType
	start        int
	end          int
	headingLevel int
	title        string
	language     string
}

// toChunks finalizes segments into types.Chunk, applying the overlap
// pass.
func toChunks(segs []segment, source string, cfg Config) []types.Chunk {
	overlapChars := int(cfg.OverlapFraction * float64(cfg.MaxTokens) * 4)

	out := make([]types.Chunk, len(segs))
	for i, s := range segs {
		content := s.content
		isContinuation := false
		if i > 0 && overlapChars > 0 {
			prev := segs[i-1].content
			if len(prev) > overlapChars {
				prev = prev[len(prev)-overlapChars:]
			}
			content = prev + content
			isContinuation = true
		}

		out[i] = types.Chunk{
			ID:          fmt.Sprintf("%s#%d", source, i),
			Content:     content,
			Source:      source,
			Type:        s.typ,
			StartOffset: s.start,
			EndOffset:   s.end,
			Metadata: types.ChunkMetadata{
				HeadingLevel:   s.headingLevel,
				Title:          s.title,
				Language:       s.language,
				IsContinuation: isContinuation,
			},
		}
	}
	return out
}

// dropUndersized removes chunks below minTokens, unless doing so would
// leave none at all.
func dropUndersized(segs []segment, minTokens int) []segment {
	if minTokens <= 0 || len(segs) <= 1 {
		return segs
	}

	var out []segment
	for _, s := range segs {
		if estimateTokens(s.content) < minTokens {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return segs
	}
	return out
}

// estimateTokens is the cheap len/4 token-count estimate used for every
// size decision in this package.
func estimateTokens(s string) int {
	return len(s) / 4
}

// isHeaderLine reports whether s (already trimmed) is a 1-6 "#" header
// followed by a space or EOL.
func isHeaderLine(s string) bool {
	i := 0
	for i < len(s) && s[i] == '#' {
		i++
	}
	if i == 0 || i > 6 {
		return false
	}
	return i == len(s) || s[i] == ' '
}

// parseHeader returns the heading level and title of an already
// confirmed header line.
func parseHeader(s string) (int, string) {
	i := 0
	for i < len(s) && s[i] == '#' {
		i++
	}
	return i, strings.TrimSpace(s[i:])
}

// isFenceLine reports whether s (already trimmed) opens or closes a
// fenced code block.
func isFenceLine(s string) bool {
	return strings.HasPrefix(s, "```")
}

// isListLine reports whether s (already trimmed) begins a list item:
// "- ", "* ", "+ ", or "<digits>. ".
func isListLine(s string) bool {
	if len(s) >= 2 && (s[0] == '-' || s[0] == '*' || s[0] == '+') && s[1] == ' ' {
		return true
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i > 0 && i+1 < len(s) && s[i] == '.' && s[i+1] == ' '
}
