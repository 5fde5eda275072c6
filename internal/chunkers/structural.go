package chunkers

import (
	"strings"

	"github.com/leefowlercu/memorizer/pkg/types"
)

// splitStructural is pass one: a single line-by-line scan
// that groups text into header, fenced-code, list, and paragraph
// segments, in source order, each carrying its original-text offsets.
func splitStructural(text string) []segment {
	lines := splitLinesKeepOffsets(text)

	var segs []segment
	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i].content)

		switch {
		case trimmed == "":
			i++

		case isFenceLine(trimmed):
			seg, next := consumeFence(lines, i)
			segs = append(segs, seg)
			i = next

		case isHeaderLine(trimmed):
			level, title := parseHeader(trimmed)
			segs = append(segs, segment{
				content:      lines[i].content,
				typ:          types.ChunkSection,
				start:        lines[i].start,
				end:          lines[i].end,
				headingLevel: level,
				title:        title,
			})
			i++

		case isListLine(trimmed):
			seg, next := consumeList(lines, i)
			segs = append(segs, seg)
			i = next

		default:
			seg, next := consumeParagraph(lines, i)
			segs = append(segs, seg)
			i = next
		}
	}

	return segs
}

// line is a single line of the original text together with the byte
// offsets it occupies in that text (the trailing newline, if any, is
// excluded from [start,end)).
type line struct {
	content string
	start   int
	end     int
}

// splitLinesKeepOffsets splits text on "\n" while tracking each line's
// byte offsets in the original string.
func splitLinesKeepOffsets(text string) []line {
	var lines []line
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, line{content: text[start:i], start: start, end: i})
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, line{content: text[start:], start: start, end: len(text)})
	}
	return lines
}

// consumeFence reads a fenced code block starting at lines[i] (an
// opening ``` line), returning a Code segment carrying the fence's
// language tag and the index of the line following the closing fence
// (or len(lines) if the fence is left unterminated; the chunker is total
// and degrades gracefully).
func consumeFence(lines []line, i int) (segment, int) {
	opening := strings.TrimSpace(lines[i].content)
	language := strings.TrimSpace(strings.TrimPrefix(opening, "```"))

	j := i + 1
	for j < len(lines) {
		if isFenceLine(strings.TrimSpace(lines[j].content)) {
			j++
			break
		}
		j++
	}

	start := lines[i].start
	end := lines[j-1].end
	return segment{
		content:  joinLines(lines, i, j-1),
		typ:      types.ChunkCode,
		start:    start,
		end:      end,
		language: language,
	}, j
}

// consumeList groups consecutive list-item lines (and their indented
// continuation lines) into a single List segment.
func consumeList(lines []line, i int) (segment, int) {
	j := i + 1
	for j < len(lines) {
		trimmed := strings.TrimSpace(lines[j].content)
		if trimmed == "" {
			break
		}
		if !isListLine(trimmed) && !strings.HasPrefix(lines[j].content, " ") && !strings.HasPrefix(lines[j].content, "\t") {
			break
		}
		j++
	}

	return segment{
		content: joinLines(lines, i, j-1),
		typ:     types.ChunkList,
		start:   lines[i].start,
		end:     lines[j-1].end,
	}, j
}

// consumeParagraph groups consecutive non-blank, non-structural lines
// into a single Paragraph segment, stopping at a blank line or the
// start of a header/fence/list.
func consumeParagraph(lines []line, i int) (segment, int) {
	j := i + 1
	for j < len(lines) {
		trimmed := strings.TrimSpace(lines[j].content)
		if trimmed == "" || isFenceLine(trimmed) || isHeaderLine(trimmed) || isListLine(trimmed) {
			break
		}
		j++
	}

	return segment{
		content: joinLines(lines, i, j-1),
		typ:     types.ChunkParagraph,
		start:   lines[i].start,
		end:     lines[j-1].end,
	}, j
}

// joinLines reconstructs the exact original substring spanning
// lines[from:to+1], newlines included, so downstream offset arithmetic
// never needs to re-search the source text.
func joinLines(lines []line, from, to int) string {
	parts := make([]string, 0, to-from+1)
	for k := from; k <= to; k++ {
		parts = append(parts, lines[k].content)
	}
	return strings.Join(parts, "\n")
}
