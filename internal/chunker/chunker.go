// Package chunker splits extracted text into overlapping segments
// sized for embedding, preferring natural break points.
package chunker

import "strings"

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// Splitter splits text into overlapping chunks. Boundaries prefer the
// nearest newline at or before the size limit, then the nearest space,
// then a raw cut.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter creates a Splitter. Non-positive sizes fall back to
// defaults, and overlap is clamped strictly below chunkSize so the
// walk always advances.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// ChunkSize returns the configured chunk size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the effective (clamped) overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split walks the text left to right producing trimmed chunks in input
// order. Whitespace-only slices are discarded. Consecutive chunks share
// up to overlap characters of trailing context.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	start := 0
	length := len(text)

	for start < length {
		end := start + s.chunkSize
		if end >= length {
			end = length
		} else {
			// Prefer a newline at or before the boundary, then a space.
			// Break points in the first half of the window are ignored so
			// the walk keeps outpacing the overlap.
			minBreak := s.chunkSize / 2
			if nl := strings.LastIndexByte(text[start:end], '\n'); nl > minBreak {
				end = start + nl
			} else if sp := strings.LastIndexByte(text[start:end], ' '); sp > minBreak {
				end = start + sp
			}
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= length {
			break
		}
		next := end - s.overlap
		if next <= start {
			// Forward progress regardless of overlap configuration.
			next = start + 1
		}
		start = next
	}

	return chunks
}
