package memory

import (
	"regexp"
	"strings"
	"unicode"
)

// blankLine matches a paragraph boundary: two or more newlines.
var blankLine = regexp.MustCompile(`\n{2,}`)

// ChunkText splits text into segments of at most maxChunkSize characters,
// preferring paragraph boundaries and falling back to sentence boundaries
// for oversized paragraphs. Segments preserve input order. A single
// sentence longer than maxChunkSize is emitted whole; no further
// splitting is attempted. Empty or whitespace-only input yields nil.
//
// maxChunkSize <= 0 selects DefaultMaxChunkSize.
func ChunkText(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	var current string

	flush := func() {
		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}
	}

	for _, section := range blankLine.Split(text, -1) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}

		if current != "" && len(current)+len(section) <= maxChunkSize {
			current += "\n\n" + section
			continue
		}

		flush()

		if len(section) <= maxChunkSize {
			current = section
			continue
		}

		// Oversized paragraph: re-accumulate at sentence granularity,
		// joined by single spaces. The trailing partial chunk stays open
		// so following sections can still pack onto it.
		for _, sentence := range splitSentences(section) {
			switch {
			case current == "":
				current = sentence
			case len(current)+len(sentence) <= maxChunkSize:
				current += " " + sentence
			default:
				flush()
				current = sentence
			}
		}
	}

	flush()
	return chunks
}

// splitSentences splits text at '.', '!' or '?' followed by whitespace
// (or end of input). Boundary whitespace is dropped; the reassembled
// text is therefore only whitespace-equivalent to the input.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		b.WriteRune(runes[i])

		if !isSentenceEnd(runes[i]) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}

		if s := strings.TrimSpace(b.String()); s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()

		for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			i++
		}
	}

	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
