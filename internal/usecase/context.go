package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"docrag/internal/domain"
)

const blockSeparator = "\n---\n"

// BuildContext renders retrieved records as labelled blocks for the prompt.
// Blocks are added in rank order until the next one would push the context
// past maxChars; the first block is always included. It returns the context
// and the records it contains.
func BuildContext(results []domain.ScoredRecord, maxChars int) (string, []domain.ScoredRecord) {
	if len(results) == 0 {
		return "", nil
	}

	var sb strings.Builder
	used := make([]domain.ScoredRecord, 0, len(results))
	size := 0

	for i, r := range results {
		block := fmt.Sprintf("[%s - chunk %d]\n%s\n", r.Record.Filename, r.Record.ChunkIndex, r.Record.Text)
		n := utf8.RuneCountInString(block)
		if i > 0 {
			n += utf8.RuneCountInString(blockSeparator)
		}
		if i > 0 && maxChars > 0 && size+n > maxChars {
			break
		}
		if i > 0 {
			sb.WriteString(blockSeparator)
		}
		sb.WriteString(block)
		size += n
		used = append(used, r)
	}

	return sb.String(), used
}

// Citations turns the records shown to the model into citations.
func Citations(records []domain.ScoredRecord, previewChars int) []domain.Citation {
	out := make([]domain.Citation, len(records))
	for i, r := range records {
		out[i] = domain.Citation{
			Filename:   r.Record.Filename,
			ChunkIndex: r.Record.ChunkIndex,
			Preview:    Preview(r.Record.Text, previewChars),
		}
	}
	return out
}

// Preview cuts text to n runes, marking the cut with "...".
func Preview(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	r := []rune(text)
	return string(r[:n]) + "..."
}
