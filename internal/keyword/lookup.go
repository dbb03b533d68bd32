package keyword

import (
	"context"

	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/models"
)

// Lookup runs lexical passage searches and retries a fruitless query with spelling corrected
// against the indexed terms.
type Lookup struct {
	index   PassageIndex
	speller *Speller
	logger  *zap.Logger
}

// NewLookup wraps index. Spelling correction is enabled when index is a TermDictionary.
func NewLookup(index PassageIndex, logger *zap.Logger) *Lookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Lookup{index: index, logger: logger}
	if dict, ok := index.(TermDictionary); ok {
		l.speller = NewSpeller(dict, 2)
	}
	return l
}

// Refresh reloads the speller's dictionary after the index was replaced.
func (l *Lookup) Refresh() error {
	if l.speller == nil {
		return nil
	}
	return l.speller.Refresh()
}

// Search returns passages for query. When nothing matches and a corrected query exists, the
// corrected query is searched instead and returned as the second value.
func (l *Lookup) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*models.Passage, string, error) {
	passages, err := l.index.Search(ctx, query, limit, opts)
	if err != nil || len(passages) > 0 || l.speller == nil {
		return passages, "", err
	}

	corrected, changed, err := l.speller.Correct(query)
	if err != nil {
		l.logger.Warn("spelling correction failed", zap.Error(err))
		return passages, "", nil
	}
	if !changed {
		return passages, "", nil
	}
	l.logger.Debug("retrying with corrected query", zap.String("query", query), zap.String("corrected", corrected))
	passages, err = l.index.Search(ctx, corrected, limit, opts)
	if err != nil {
		return nil, "", err
	}
	return passages, corrected, nil
}

// DocCount returns the number of indexed passages.
func (l *Lookup) DocCount() (uint64, error) {
	return l.index.DocCount()
}
