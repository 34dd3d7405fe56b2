package chunker

import (
	"fmt"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/domain"
)

// Split partitions transcript text into ordered windows of at most size
// characters, adjacent windows sharing overlap characters. When more than
// maxChunks windows would be needed, the window size is recomputed as
// ceil(len/maxChunks) and the windows become consecutive, so the chunk
// count never exceeds maxChunks. All sizes count characters, not bytes;
// windows never cut a multi-byte character in half.
func Split(text string, size, overlap, maxChunks int) ([]domain.Chunk, error) {
	if len(text) == 0 {
		return nil, fmt.Errorf("split transcript: empty text: %w", domain.ErrInvalidInput)
	}
	if size <= 0 || maxChunks <= 0 {
		return nil, fmt.Errorf("split transcript: size %d, max chunks %d: %w", size, maxChunks, domain.ErrInvalidInput)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("split transcript: overlap %d out of range for size %d: %w", overlap, size, domain.ErrInvalidInput)
	}

	runes := []rune(text)

	if len(runes) <= size {
		return withTotals([]string{text}), nil
	}

	if chunkCount(len(runes), size, overlap) > maxChunks {
		effective := (len(runes) + maxChunks - 1) / maxChunks
		return withTotals(windows(runes, effective, 0)), nil
	}

	return withTotals(windows(runes, size, overlap)), nil
}

// chunkCount predicts how many windows of the given size and overlap are
// needed to cover length characters.
func chunkCount(length, size, overlap int) int {
	stride := size - overlap
	remaining := length - size
	return 1 + (remaining+stride-1)/stride
}

func windows(runes []rune, size, overlap int) []string {
	var parts []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
		if end >= len(runes) {
			break
		}
		start = end - overlap
	}
	return parts
}

func withTotals(parts []string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = domain.Chunk{Ordinal: i + 1, Total: len(parts), Text: part}
	}
	return chunks
}
