package chunkers

import "strings"

// separators is the recursive splitter's precedence order: paragraph
// breaks first, then lines, then sentence boundaries, then whitespace.
var separators = []string{"\n\n", "\n", ". ", " "}

// splitRecursive splits an oversized segment down to pieces estimated
// at or under maxTokens, preserving s's type/heading metadata on every
// resulting piece and computing each piece's offsets by running sums
// over the exact text it consumed rather than searching for the piece
// in s.content.
func splitRecursive(s segment, maxTokens int) []segment {
	if estimateTokens(s.content) <= maxTokens {
		return []segment{s}
	}

	pieces := splitBySeparators(s.content, separators, maxTokens)

	var out []segment
	offset := s.start
	for _, p := range pieces {
		piece := segment{
			content:      p,
			typ:          s.typ,
			start:        offset,
			end:          offset + len(p),
			headingLevel: s.headingLevel,
			title:        s.title,
			language:     s.language,
		}
		offset += len(p)

		if estimateTokens(p) > maxTokens && len(pieces) > 1 {
			out = append(out, splitRecursive(piece, maxTokens)...)
		} else {
			out = append(out, piece)
		}
	}

	return groupGreedy(out, maxTokens)
}

// splitBySeparators splits text on the first separator in seps that
// divides it into more than one piece, reattaching the separator to the end of every
// piece but the last so that concatenating the returned pieces exactly
// reconstructs text. Falls back to the next separator in precedence,
// and finally to fixed-size character splitting, so the function always
// terminates and always reconstructs exactly.
func splitBySeparators(text string, seps []string, maxTokens int) []string {
	if len(seps) == 0 {
		return splitByChars(text, maxTokens*4)
	}

	sep := seps[0]
	if sep == "" || !strings.Contains(text, sep) {
		return splitBySeparators(text, seps[1:], maxTokens)
	}

	var pieces []string
	start := 0
	for {
		idx := strings.Index(text[start:], sep)
		if idx < 0 {
			pieces = append(pieces, text[start:])
			break
		}
		end := start + idx + len(sep)
		pieces = append(pieces, text[start:end])
		start = end
	}

	var out []string
	for _, p := range pieces {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) <= 1 {
		return splitBySeparators(text, seps[1:], maxTokens)
	}
	return out
}

// splitByChars is the last-resort splitter, used once every separator in
// the precedence list has failed to match: byte windows sized from the
// caller's token budget (maxTokens*4), guaranteeing the recursive
// splitter always terminates and no fallback piece exceeds maxTokens.
func splitByChars(text string, size int) []string {
	if size <= 0 {
		size = 1
	}
	var out []string
	for start := 0; start < len(text); start += size {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		out = append(out, text[start:end])
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

// groupGreedy merges consecutive small pieces back together up to
// maxTokens, so a separator split that produced many tiny pieces
// doesn't leave every piece as its own chunk.
func groupGreedy(segs []segment, maxTokens int) []segment {
	if len(segs) <= 1 {
		return segs
	}

	var out []segment
	cur := segs[0]
	for _, s := range segs[1:] {
		if estimateTokens(cur.content+s.content) <= maxTokens {
			cur = segment{
				content:      cur.content + s.content,
				typ:          cur.typ,
				start:        cur.start,
				end:          s.end,
				headingLevel: cur.headingLevel,
				title:        cur.title,
				language:     cur.language,
			}
			continue
		}
		out = append(out, cur)
		cur = s
	}
	out = append(out, cur)
	return out
}
