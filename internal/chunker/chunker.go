// Package chunker splits extracted document text into fixed-size overlapping
// chunks for embedding and retrieval.
package chunker

import "strings"

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Maximum chunk size in characters (runes).
	ChunkOverlap int // Exact overlap between consecutive chunks in characters.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// Split breaks text into chunks of at most cfg.ChunkSize characters. Each
// chunk after the first starts exactly cfg.ChunkOverlap characters before the
// end of its predecessor. Cut points prefer natural boundaries (paragraph
// break, newline, sentence end, word boundary) near the size limit and fall
// back to a hard cut. Splitting is deterministic.
func Split(text string, cfg Config) []string {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}

	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= cfg.ChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + cfg.ChunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		cut := findCut(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))

		next := cut - cfg.ChunkOverlap
		if next <= start {
			// Guard against stalling when the cut landed very close to
			// the chunk start.
			next = start + 1
		}
		start = next
	}
	return chunks
}

// findCut picks a cut position in (start, end]. It searches backwards from
// end through the final fifth of the window for, in order of preference, a
// paragraph break, a newline, a sentence end, or a space. If none is found
// the chunk is cut hard at end.
func findCut(runes []rune, start, end int) int {
	window := (end - start) / 5
	limit := end - window
	if limit <= start {
		limit = start + 1
	}

	// Paragraph break: blank line.
	for i := end; i > limit; i-- {
		if runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
	}
	// Line break.
	for i := end; i > limit; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	// Sentence end followed by whitespace.
	for i := end; i > limit+1; i-- {
		r := runes[i-2]
		if (r == '.' || r == '!' || r == '?') && isSpace(runes[i-1]) {
			return i
		}
	}
	// Word boundary.
	for i := end; i > limit; i-- {
		if isSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
}
