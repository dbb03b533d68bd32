// Package embedding turns text into fixed-dimension vectors.
package embedding

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/config"
	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
)

// Embedder produces vector embeddings for text.
// ModelID identifies the model and version; vectors from different ids are not comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelID() string
	Close() error
}

// CacheReporter is implemented by embedders that keep an EmbeddingCache.
type CacheReporter interface {
	CacheStats() (hits, misses uint64)
}

// NewFromConfig builds the embedder selected by cfg.Provider.
// When the ONNX runtime cannot be initialized and fallback is true, a HashEmbedder is returned instead.
func NewFromConfig(cfg config.EmbeddingConfig, fallback bool, logger *zap.Logger) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderONNX:
		e, err := newONNXFromConfig(cfg, logger)
		if err == nil {
			return e, nil
		}
		if !fallback {
			return nil, errs.Wrap("embedding.NewFromConfig", errs.ErrConfig, err)
		}
		if logger != nil {
			logger.Warn("onnx embedder unavailable, using hash embedder", zap.Error(err))
		}
		return NewHashEmbedder(cfg.Dimensions), nil
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(cfg.ModelID, cfg.BaseURL, config.APIKey(cfg.APIKeyEnv), cfg.Dimensions, cfg.CacheSize)
	case config.ProviderHash:
		return NewHashEmbedder(cfg.Dimensions), nil
	default:
		return nil, errs.New("embedding.NewFromConfig", errs.ErrConfig, "unknown provider %q", cfg.Provider)
	}
}

// HashedVocabSuffix marks the model id of an ONNX embedder running without its WordPiece
// vocabulary, so artifacts built that way are rejected once the vocabulary is installed.
const HashedVocabSuffix = "+hashed-vocab"

// VocabPath returns cfg.VocabPath, or vocab.txt in the model's directory.
func VocabPath(cfg config.EmbeddingConfig) string {
	if cfg.VocabPath != "" {
		return cfg.VocabPath
	}
	if cfg.ModelPath == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(cfg.ModelPath), "vocab.txt")
}

func newONNXFromConfig(cfg config.EmbeddingConfig, logger *zap.Logger) (*ONNXEmbedder, error) {
	tok, hashed, err := NewTokenizer(VocabPath(cfg))
	if err != nil {
		return nil, err
	}
	modelID := cfg.ModelID
	if hashed {
		modelID += HashedVocabSuffix
		if logger != nil {
			logger.Warn("no WordPiece vocabulary found, token ids are hashed", zap.String("vocab", VocabPath(cfg)))
		}
	}
	return NewONNXEmbedder(modelID, cfg.ModelPath, tok, cfg.Dimensions, cfg.MaxTokens, cfg.CacheSize)
}

// embedEach calls embed for every text in order.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
