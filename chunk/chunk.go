// ABOUTME: Recursive character text splitter that breaks transcripts into overlapping
// ABOUTME: chunks for embedding, plus summary statistics over a chunk set.
package chunk

import (
	"fmt"
	"strings"
)

// separators tried in order, from coarsest to finest. The final "" splits
// into raw characters when nothing else fits.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunk is one text segment with position metadata.
type Chunk struct {
	Text  string `json:"text"`
	Index int    `json:"chunk_id"`
	Size  int    `json:"chunk_size"`
}

// Stats summarizes a chunk set.
type Stats struct {
	TotalChunks     int     `json:"total_chunks"`
	AvgChunkSize    float64 `json:"avg_chunk_size"`
	MinChunkSize    int     `json:"min_chunk_size"`
	MaxChunkSize    int     `json:"max_chunk_size"`
	TotalCharacters int     `json:"total_characters"`
}

// Splitter splits text into chunks of at most Size characters, adjacent
// chunks sharing up to Overlap characters of context.
type Splitter struct {
	Size    int
	Overlap int
}

// NewSplitter creates a Splitter. Size must be positive and Overlap must be
// smaller than Size.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d", overlap)
	}
	return &Splitter{Size: size, Overlap: overlap}, nil
}

// Split breaks text into chunks. It recursively splits on the coarsest
// separator that appears in the text, then merges the resulting pieces back
// together up to the size limit with overlap carried between neighbors.
func (s *Splitter) Split(text string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	pieces := s.splitRecursive(text, separators)

	chunks := make([]Chunk, 0, len(pieces))
	for _, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Text:  piece,
			Index: len(chunks),
			Size:  len(piece),
		})
	}
	return chunks, nil
}

// splitRecursive splits text on the first separator that occurs in it, then
// recurses into any piece still over the size limit using finer separators.
func (s *Splitter) splitRecursive(text string, seps []string) []string {
	if len(text) <= s.Size {
		return []string{text}
	}

	sep, rest := seps[0], seps[1:]
	for len(rest) > 0 && sep != "" && !strings.Contains(text, sep) {
		sep, rest = rest[0], rest[1:]
	}

	var parts []string
	if sep == "" {
		// Character-level fallback: hard slices of at most Size.
		for start := 0; start < len(text); start += s.Size - s.Overlap {
			end := min(start+s.Size, len(text))
			parts = append(parts, text[start:end])
			if end == len(text) {
				break
			}
		}
		return parts
	}

	for _, piece := range splitKeepSep(text, sep) {
		if len(piece) > s.Size {
			parts = append(parts, s.splitRecursive(piece, rest)...)
		} else {
			parts = append(parts, piece)
		}
	}
	return s.merge(parts, sep)
}

// splitKeepSep splits text by sep, re-attaching the separator to the end of
// each piece so no characters are lost.
func splitKeepSep(text, sep string) []string {
	raw := strings.Split(text, sep)
	out := make([]string, 0, len(raw))
	for i, piece := range raw {
		if i < len(raw)-1 {
			piece += sep
		}
		if piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

// merge greedily packs consecutive pieces into chunks of at most Size
// characters, seeding each new chunk with up to Overlap trailing characters
// of the previous one.
func (s *Splitter) merge(pieces []string, sep string) []string {
	var out []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		text := current.String()
		out = append(out, text)
		current.Reset()

		if s.Overlap > 0 {
			tail := text
			if len(tail) > s.Overlap {
				tail = tail[len(tail)-s.Overlap:]
			}
			// Start the overlap at a word boundary when one exists.
			if idx := strings.IndexByte(tail, ' '); idx >= 0 && idx < len(tail)-1 {
				tail = tail[idx+1:]
			}
			current.WriteString(tail)
		}
	}

	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+len(piece) > s.Size {
			flush()
		}
		// A single oversized piece becomes its own chunk.
		if len(piece) > s.Size && current.Len() > 0 {
			flush()
		}
		current.WriteString(piece)
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}

// ComputeStats summarizes chunk sizes. Returns the zero value for no chunks.
func ComputeStats(chunks []Chunk) Stats {
	if len(chunks) == 0 {
		return Stats{}
	}

	stats := Stats{
		TotalChunks:  len(chunks),
		MinChunkSize: chunks[0].Size,
	}
	for _, c := range chunks {
		stats.TotalCharacters += c.Size
		if c.Size < stats.MinChunkSize {
			stats.MinChunkSize = c.Size
		}
		if c.Size > stats.MaxChunkSize {
			stats.MaxChunkSize = c.Size
		}
	}
	stats.AvgChunkSize = float64(stats.TotalCharacters) / float64(len(chunks))
	return stats
}
