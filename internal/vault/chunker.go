package vault

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxChunkSize is the target upper bound for chunk text, in runes.
	MaxChunkSize = 800

	// MinChunkLength is the minimum whitespace-collapsed length a chunk
	// must have to be kept. Shorter fragments are noise and dropped.
	MinChunkLength = 30

	// DefaultHeading is assigned to text before the first heading.
	DefaultHeading = "Introduction"
)

// headingPattern matches markdown headings of level 1-3. Deeper
// headings do not start a new section.
var headingPattern = regexp.MustCompile(`^#{1,3}\s+(.*)$`)

// paragraphPattern splits section text on blank-line boundaries.
var paragraphPattern = regexp.MustCompile(`\n\s*\n`)

// ChunkDocument splits document text into heading-scoped chunks.
// The result is deterministic: identical content and path always yield
// the same chunk sequence and index assignment.
func ChunkDocument(content, path string) []Chunk {
	var chunks []Chunk
	heading := DefaultHeading
	var section []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(section, "\n"))
		section = section[:0]
		if text == "" {
			return
		}
		for _, piece := range splitSection(text) {
			if collapsedLength(piece) < MinChunkLength {
				continue
			}
			chunks = append(chunks, Chunk{
				Text:       piece,
				Path:       path,
				ChunkIndex: len(chunks),
				Heading:    heading,
			})
		}
	}

	for _, line := range strings.Split(content, "\n") {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flush()
			heading = strings.TrimSpace(m[1])
			continue
		}
		section = append(section, line)
	}
	flush()

	return chunks
}

// splitSection breaks section text into pieces of at most MaxChunkSize
// runes. Small sections pass through whole. Larger ones are split on
// paragraph boundaries and greedily packed; a single paragraph longer
// than MaxChunkSize is cut into fixed-size windows.
func splitSection(text string) []string {
	if utf8.RuneCountInString(text) <= MaxChunkSize {
		return []string{text}
	}

	var pieces []string
	var buf string
	for _, para := range paragraphs(text) {
		length := utf8.RuneCountInString(para)

		if length > MaxChunkSize {
			if buf != "" {
				pieces = append(pieces, buf)
				buf = ""
			}
			pieces = append(pieces, splitWindows(para)...)
			continue
		}

		switch {
		case buf == "":
			buf = para
		case utf8.RuneCountInString(buf)+2+length <= MaxChunkSize:
			buf += "\n\n" + para
		default:
			pieces = append(pieces, buf)
			buf = para
		}
	}
	if buf != "" {
		pieces = append(pieces, buf)
	}

	return pieces
}

// paragraphs splits text on blank lines, dropping empty entries.
func paragraphs(text string) []string {
	var out []string
	for _, p := range paragraphPattern.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitWindows cuts an oversized paragraph into MaxChunkSize-rune
// windows.
func splitWindows(para string) []string {
	runes := []rune(para)
	var parts []string
	for start := 0; start < len(runes); start += MaxChunkSize {
		end := start + MaxChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		part := strings.TrimSpace(string(runes[start:end]))
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// collapsedLength counts runes after collapsing whitespace runs to
// single spaces.
func collapsedLength(s string) int {
	return utf8.RuneCountInString(strings.Join(strings.Fields(s), " "))
}
