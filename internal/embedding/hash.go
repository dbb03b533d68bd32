package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/siddhikamalkar/AI-Medibot/pkg/utils"
)

// HashEmbedder is a deterministic embedder derived from the text hash. The same text always
// gets the same unit-length vector. It carries no semantics and serves tests and offline runs.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding based on the text hash.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	seed := float64(termHash(text))
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(seed*float64(i+1))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelID includes the dimension so artifacts built at another size are rejected.
func (e *HashEmbedder) ModelID() string {
	return fmt.Sprintf("hash-sin-v1/%d", e.dimensions)
}

// Close is a no-op.
func (e *HashEmbedder) Close() error {
	return nil
}
