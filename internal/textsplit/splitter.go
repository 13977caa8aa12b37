// Package textsplit splits text into ordered, overlapping chunks.
//
// Chunks are bounded by a maximum character (rune) count and consecutive
// chunks share a configurable overlap so that sentences straddling a chunk
// boundary remain retrievable. Splitting is fully deterministic: identical
// input and configuration always yield the identical sequence of chunks.
package textsplit

import (
	"fmt"
	"strings"
)

// Default window parameters, matching the ingestion defaults.
const (
	DefaultChunkSize    = 3000
	DefaultChunkOverlap = 300
)

// Splitter produces overlapping text windows.
type Splitter struct {
	size    int
	overlap int
}

// New creates a Splitter with the given window size and overlap, both in
// runes. Overlap must be non-negative and strictly smaller than size.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got overlap=%d size=%d", overlap, size)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split returns the ordered chunks of text. Empty or all-whitespace input
// yields no chunks. Each chunk is at most the configured size; where
// possible the window is shortened to end at a paragraph break, then a line
// break, then a space, so chunks tend to end on natural boundaries.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}
	if len(runes) <= s.size {
		return []string{strings.TrimSpace(text)}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + s.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.breakPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}
		start = end - s.overlap
	}

	return chunks
}

// breakPoint returns the index at which to cut the window [start, limit).
// It prefers, in order, the position after the last paragraph break, the
// last line break, or the last space inside the window. A candidate is only
// used if it keeps the window larger than the overlap, which guarantees
// forward progress.
func (s *Splitter) breakPoint(runes []rune, start, limit int) int {
	minEnd := start + s.overlap + 1

	// Paragraph break: cut after "\n\n".
	for i := limit - 1; i > start; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			if i+1 >= minEnd {
				return i + 1
			}
			break
		}
	}

	// Line break.
	for i := limit - 1; i > start; i-- {
		if runes[i] == '\n' {
			if i+1 >= minEnd {
				return i + 1
			}
			break
		}
	}

	// Word boundary.
	for i := limit - 1; i > start; i-- {
		if runes[i] == ' ' {
			if i+1 >= minEnd {
				return i + 1
			}
			break
		}
	}

	// No usable boundary; hard cut.
	return limit
}
