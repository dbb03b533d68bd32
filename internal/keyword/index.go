// Package keyword provides lexical (BM25) search over corpus passages.
package keyword

import (
	"context"

	"github.com/siddhikamalkar/AI-Medibot/internal/models"
)

// SearchOptions are optional parameters for passage search. Nil means exact matching.
type SearchOptions struct {
	// FuzzyEnabled matches terms within Fuzziness edits, for misspelled symptoms and drug names.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein distance (1 or 2). Defaults to 1.
	Fuzziness int
}

// PassageIndex indexes passages by ordinal and answers lexical queries.
type PassageIndex interface {
	// Replace makes the index hold exactly the given passages.
	Replace(ctx context.Context, passages []*models.Passage) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*models.Passage, error)
	DocCount() (uint64, error)
	Close() error
}

// TermDictionary exposes indexed terms and their document frequencies.
type TermDictionary interface {
	Terms() (map[string]int, error)
}
