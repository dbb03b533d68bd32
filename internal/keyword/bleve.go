package keyword

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/siddhikamalkar/AI-Medibot/internal/models"
)

const batchSize = 500

// passageDoc is the document shape stored in Bleve.
type passageDoc struct {
	Content  string `json:"content"`
	SourceID string `json:"source_id"`
}

// BleveIndex implements PassageIndex using Bleve. Document ids are decimal ordinals.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates an in-memory index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			index, openErr := bleve.Open(path)
			if openErr != nil {
				return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
			}
			return &BleveIndex{index: index}, nil
		}
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (no stemming) so drug and disease names match as written.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("source_id", bleve.NewKeywordFieldMapping())
	im.DefaultMapping = docMapping

	var index bleve.Index
	var err error
	if path == "" {
		index, err = bleve.NewMemOnly(im)
	} else {
		index, err = bleve.New(path, im)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Replace indexes every passage and deletes ordinals beyond the new corpus length.
func (b *BleveIndex) Replace(ctx context.Context, passages []*models.Passage) error {
	old, err := b.index.DocCount()
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}

	batch := b.index.NewBatch()
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to index passages: %w", err)
		}
		batch.Reset()
		return nil
	}

	for _, p := range passages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(strconv.Itoa(p.Ordinal), passageDoc{Content: p.Content, SourceID: p.SourceID}); err != nil {
			return fmt.Errorf("failed to add passage %d: %w", p.Ordinal, err)
		}
		if batch.Size() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	for ord := len(passages); ord < int(old); ord++ {
		batch.Delete(strconv.Itoa(ord))
		if batch.Size() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// Search runs a match query (or per-term fuzzy queries) over passage content.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*models.Passage, error) {
	var q blevequery.Query
	if opts != nil && opts.FuzzyEnabled {
		fuzziness := opts.Fuzziness
		if fuzziness <= 0 {
			fuzziness = 1
		}
		q = buildFuzzyQuery(query, fuzziness)
	} else {
		mq := bleve.NewMatchQuery(query)
		mq.SetField("content")
		q = mq
	}
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"content", "source_id"}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]*models.Passage, 0, len(results.Hits))
	for _, hit := range results.Hits {
		ord, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		p := &models.Passage{Ordinal: ord, Score: hit.Score}
		if s, ok := hit.Fields["content"].(string); ok {
			p.Content = s
		}
		if s, ok := hit.Fields["source_id"].(string); ok {
			p.SourceID = s
		}
		out = append(out, p)
	}
	return out, nil
}

// buildFuzzyQuery ORs one fuzzy query per term.
func buildFuzzyQuery(query string, fuzziness int) blevequery.Query {
	terms := tokenizeQuery(query)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField("content")
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField("content")
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Terms returns every content term with its document frequency.
func (b *BleveIndex) Terms() (map[string]int, error) {
	dict, err := b.index.FieldDict("content")
	if err != nil {
		return nil, fmt.Errorf("failed to read term dictionary: %w", err)
	}
	defer dict.Close()
	terms := make(map[string]int)
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		terms[entry.Term] = int(entry.Count)
	}
	return terms, nil
}

// DocCount returns the number of indexed passages.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
