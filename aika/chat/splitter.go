package chat

import (
	"regexp"
	"strings"
)

// Long assistant replies read better as several bubbles. SplitSections
// first looks for explicit structure (a blank line followed by a header of
// some kind); only when the text has none and is long does it fall back to
// greedy paragraph packing.
const (
	splitThreshold = 400
	softChunkLimit = 350
	hardChunkLimit = 500
)

var (
	reBoldHeader   = regexp.MustCompile(`^\*\*[^*\n]+\*\*:?\s*$`)
	reMarkdownHead = regexp.MustCompile(`^#{2,3}\s+\S`)
	reNumberedBold = regexp.MustCompile(`^\d+\.\s+\*\*`)
)

// SplitSections breaks the authoritative final text of a turn into bubble
// sections. It always returns at least one non-empty section for non-empty
// input.
func SplitSections(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []string{text}
	}
	paragraphs := splitParagraphs(trimmed)
	if len(paragraphs) > 1 {
		// boundary patterns, first one that yields more than one part wins
		for _, boundary := range []func(string) bool{isBoldHeaderPara, isMarkdownHeadingPara, isNumberedBoldPara} {
			if parts := groupAtBoundaries(paragraphs, boundary); len(parts) > 1 {
				return parts
			}
		}
	}
	if len(trimmed) > splitThreshold {
		if parts := greedySplit(paragraphs); len(parts) > 1 {
			return parts
		}
	}
	return []string{trimmed}
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range regexp.MustCompile(`\n\s*\n`).Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstLine(paragraph string) string {
	if i := strings.IndexByte(paragraph, '\n'); i >= 0 {
		return paragraph[:i]
	}
	return paragraph
}

func isBoldHeaderPara(p string) bool      { return reBoldHeader.MatchString(firstLine(p)) }
func isMarkdownHeadingPara(p string) bool { return reMarkdownHead.MatchString(firstLine(p)) }
func isNumberedBoldPara(p string) bool    { return reNumberedBold.MatchString(firstLine(p)) }

// groupAtBoundaries starts a new part at every paragraph the boundary
// predicate matches. The opening paragraph never forces an empty lead part.
func groupAtBoundaries(paragraphs []string, boundary func(string) bool) []string {
	var parts []string
	var cur []string
	for _, p := range paragraphs {
		if boundary(p) && len(cur) > 0 {
			parts = append(parts, strings.Join(cur, "\n\n"))
			cur = cur[:0]
		}
		cur = append(cur, p)
	}
	if len(cur) > 0 {
		parts = append(parts, strings.Join(cur, "\n\n"))
	}
	return parts
}

func looksLikeHeader(p string) bool {
	line := firstLine(p)
	return strings.HasPrefix(line, "**") || strings.HasPrefix(line, "#")
}

// greedySplit packs paragraphs into chunks: a new chunk starts when the
// current one is past the soft limit and the next paragraph looks like a
// header, or past the hard limit regardless.
func greedySplit(paragraphs []string) []string {
	var parts []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	for _, p := range paragraphs {
		if cur.Len() > 0 {
			if (cur.Len() > softChunkLimit && looksLikeHeader(p)) || cur.Len() > hardChunkLimit {
				flush()
			}
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
	}
	flush()
	return parts
}
