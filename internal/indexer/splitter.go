// Package indexer turns source documents into the retrieval artifact.
package indexer

import (
	"strings"

	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
)

// Split cuts text into windows of size characters (Unicode code points), each starting
// size-overlap characters after the previous one. The last window may be shorter; splitting
// stops at the first window that reaches the end of the text. Text no longer than size yields
// one chunk and empty text yields none. Invalid UTF-8 is replaced by U+FFFD first, so every
// chunk is an exact substring of strings.ToValidUTF8(text, "\uFFFD").
func Split(text string, size, overlap int) ([]string, error) {
	if err := ValidateChunking(size, overlap); err != nil {
		return nil, err
	}
	text = strings.ToValidUTF8(text, "\uFFFD")
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	if len(runes) <= size {
		return []string{text}, nil
	}
	step := size - overlap
	chunks := make([]string, 0, (len(runes)-overlap+step-1)/step)
	for start := 0; ; start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// ValidateChunking reports ErrConfig unless size > 0 and 0 <= overlap < size.
func ValidateChunking(size, overlap int) error {
	if size <= 0 {
		return errs.New("indexer.Split", errs.ErrConfig, "chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return errs.New("indexer.Split", errs.ErrConfig, "overlap must be in [0, %d), got %d", size, overlap)
	}
	return nil
}
