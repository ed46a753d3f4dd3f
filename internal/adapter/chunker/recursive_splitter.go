package chunker

import (
	"fmt"
	"strings"

	"docrag/internal/domain"
)

// RecursiveSplitter cuts text into chunks of at most size runes. Each cut is
// placed at the last boundary of the most preferred kind that lies between
// start+overlap and start+size; the next chunk then starts overlap runes
// before the cut.
type RecursiveSplitter struct {
	size       int
	overlap    int
	boundaries []Boundary
}

func NewRecursiveSplitter(size, overlap int, boundaries ...Boundary) (*RecursiveSplitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", domain.ErrInvalidInput, size, overlap)
	}
	if len(boundaries) == 0 {
		boundaries = DefaultBoundaries()
	}
	return &RecursiveSplitter{size: size, overlap: overlap, boundaries: boundaries}, nil
}

func (s *RecursiveSplitter) Split(doc domain.Document) ([]domain.Chunk, error) {
	chunks := s.SplitText(doc.Text)
	for i := range chunks {
		chunks[i].DocID = doc.ID
		chunks[i].Filename = doc.Filename
	}
	return chunks, nil
}

// SplitText partitions text. Blank text yields no chunks.
func (s *RecursiveSplitter) SplitText(text string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)

	var chunks []domain.Chunk
	start, overlap := 0, 0
	for {
		end := n
		if start+s.size < n {
			end = s.cut(runes, start)
		}

		chunks = append(chunks, domain.Chunk{
			Index:   len(chunks),
			Text:    string(runes[start:end]),
			Start:   start,
			End:     end,
			Overlap: overlap,
		})

		if end >= n {
			return chunks
		}
		start, overlap = end-s.overlap, s.overlap
	}
}

func (s *RecursiveSplitter) cut(runes []rune, start int) int {
	lo, hi := start+s.overlap, start+s.size
	for _, b := range s.boundaries {
		if p := b.LastCut(runes, lo, hi); p > 0 {
			return p
		}
	}

	// No boundary inside the window: the unit is unsplittable, so the chunk
	// runs to the next boundary of any kind.
	end := len(runes)
	for _, b := range s.boundaries {
		if p := b.NextCut(runes, hi); p > 0 && p < end {
			end = p
		}
	}
	return end
}
