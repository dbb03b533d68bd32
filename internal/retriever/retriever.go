// Package retriever answers queries with the corpus passages nearest to them.
package retriever

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/corpus"
	"github.com/siddhikamalkar/AI-Medibot/internal/embedding"
	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
	"github.com/siddhikamalkar/AI-Medibot/internal/models"
	"github.com/siddhikamalkar/AI-Medibot/internal/vector"
)

// Sentinel context strings passed to the chat model in place of passages.
const (
	NoQueryContext     = "No additional medical context found."
	NoResultsContext   = "No relevant medical knowledge found."
	UnavailableContext = "Medical context unavailable."
)

const passageSeparator = "\n\n"

// loaded is an artifact with the index built over it. It is never mutated after construction.
type loaded struct {
	artifact *corpus.Artifact
	index    vector.Index
}

// Retriever embeds queries and looks them up in the loaded artifact. It is safe for concurrent use.
type Retriever struct {
	embedder  embedding.Embedder
	topK      int
	indexType string
	current   atomic.Pointer[loaded]
	logger    *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets a logger for retrieval events.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// WithIndexType selects the vector index backend ("flat" or "faiss").
func WithIndexType(t string) Option {
	return func(r *Retriever) { r.indexType = t }
}

// New returns a Retriever over art. The artifact must have been built with embedder's model.
func New(ctx context.Context, embedder embedding.Embedder, art *corpus.Artifact, topK int, opts ...Option) (*Retriever, error) {
	if topK <= 0 {
		return nil, errs.New("retriever.New", errs.ErrConfig, "top_k must be positive, got %d", topK)
	}
	r := &Retriever{embedder: embedder, topK: topK, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.Swap(ctx, art); err != nil {
		return nil, err
	}
	return r, nil
}

// Open loads the artifact at path, checking it against embedder, and returns a Retriever over it.
func Open(ctx context.Context, path string, embedder embedding.Embedder, topK int, opts ...Option) (*Retriever, error) {
	art, err := corpus.Load(path, embedder.ModelID(), embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	return New(ctx, embedder, art, topK, opts...)
}

// Swap replaces the loaded artifact. Queries in flight finish against the previous one.
func (r *Retriever) Swap(ctx context.Context, art *corpus.Artifact) error {
	const op = "retriever.Swap"
	if err := art.Validate(); err != nil {
		return err
	}
	if art.ModelID != r.embedder.ModelID() {
		return errs.New(op, errs.ErrCorruptIndex, "artifact model %q does not match embedder %q", art.ModelID, r.embedder.ModelID())
	}
	if art.Dim != r.embedder.Dimensions() {
		return errs.New(op, errs.ErrCorruptIndex, "artifact dimension %d does not match embedder %d", art.Dim, r.embedder.Dimensions())
	}
	idx, err := art.Index(ctx, r.indexType)
	if err != nil {
		return errs.Wrap(op, errs.ErrCorruptIndex, err)
	}
	// The previous index is not closed: queries in flight may still hold it.
	r.current.Store(&loaded{artifact: art, index: idx})
	r.logger.Debug("artifact loaded", zap.String("model", art.ModelID), zap.Int("chunks", art.Len()))
	return nil
}

// Artifact returns the currently loaded artifact.
func (r *Retriever) Artifact() *corpus.Artifact {
	return r.current.Load().artifact
}

// TopK returns the default number of passages per query.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve returns the top-k passages for query joined by blank lines. A blank query returns
// NoQueryContext without touching the embedder; no hits returns NoResultsContext.
func (r *Retriever) Retrieve(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return NoQueryContext, nil
	}
	passages, err := r.Passages(ctx, query, r.topK)
	if err != nil {
		return "", err
	}
	return Join(passages), nil
}

// Context is Retrieve for the chat flow: errors are logged and replaced by UnavailableContext.
func (r *Retriever) Context(ctx context.Context, query string) string {
	text, err := r.Retrieve(ctx, query)
	if err != nil {
		r.logger.Error("retrieval failed", zap.Error(err))
		return UnavailableContext
	}
	return text
}

// Passages returns up to k passages nearest to query, closest first. A blank query returns none.
func (r *Retriever) Passages(ctx context.Context, query string, k int) ([]*models.Passage, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil, nil
	}
	cur := r.current.Load()

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	hits, err := cur.index.Search(ctx, vec, k)
	if err != nil {
		return nil, errs.Wrap("retriever.Passages", errs.ErrCorruptIndex, err)
	}

	out := make([]*models.Passage, 0, len(hits))
	for _, h := range hits {
		if h.Ordinal < 0 || h.Ordinal >= len(cur.artifact.Chunks) {
			r.logger.Warn("dropping out-of-range ordinal",
				zap.Int("ordinal", h.Ordinal),
				zap.Int("chunks", len(cur.artifact.Chunks)),
				zap.Error(errs.ErrCorruptIndex))
			continue
		}
		out = append(out, &models.Passage{
			Ordinal:  h.Ordinal,
			Content:  cur.artifact.Chunks[h.Ordinal],
			Distance: h.Distance,
		})
	}
	r.logger.Debug("retrieved passages", zap.Int("requested", k), zap.Int("returned", len(out)))
	return out, nil
}

// Join concatenates passage texts with blank lines, or returns NoResultsContext when empty.
func Join(passages []*models.Passage) string {
	if len(passages) == 0 {
		return NoResultsContext
	}
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Content
	}
	return strings.Join(texts, passageSeparator)
}

// Close releases the loaded index.
func (r *Retriever) Close() error {
	if cur := r.current.Load(); cur != nil {
		return cur.index.Close()
	}
	return nil
}
