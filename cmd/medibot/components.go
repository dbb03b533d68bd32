package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/chat"
	"github.com/siddhikamalkar/AI-Medibot/internal/config"
	"github.com/siddhikamalkar/AI-Medibot/internal/consult"
	"github.com/siddhikamalkar/AI-Medibot/internal/embedding"
	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
	"github.com/siddhikamalkar/AI-Medibot/internal/indexer"
	"github.com/siddhikamalkar/AI-Medibot/internal/keyword"
	"github.com/siddhikamalkar/AI-Medibot/internal/retriever"
	"github.com/siddhikamalkar/AI-Medibot/internal/storage"
	"github.com/siddhikamalkar/AI-Medibot/internal/vector"
	"github.com/siddhikamalkar/AI-Medibot/internal/watcher"
)

// Components holds initialized services. Retriever and Doctor are nil until
// openRetriever and newDoctor are called.
type Components struct {
	Config       *config.Config
	Storage      *storage.SQLiteStorage
	Embedder     embedding.Embedder
	KeywordIndex *keyword.BleveIndex
	Lookup       *keyword.Lookup
	Ingestor     *indexer.Ingestor
	Retriever    *retriever.Retriever
	Doctor       *consult.Doctor
	logger       *zap.Logger
}

// Close releases every opened resource.
func (c *Components) Close() {
	if c.Retriever != nil {
		_ = c.Retriever.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		if cr, ok := c.Embedder.(embedding.CacheReporter); ok {
			hits, misses := cr.CacheStats()
			c.logger.Debug("embedding cache", zap.Uint64("hits", hits), zap.Uint64("misses", misses))
		}
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Config: cfg, Storage: store, logger: logger}

	c.Embedder, err = embedding.NewFromConfig(cfg.Embedding, true, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	logger.Info("embedder initialized",
		zap.String("model", c.Embedder.ModelID()),
		zap.Int("dimensions", c.Embedder.Dimensions()))

	if p := cfg.Storage.KeywordIndexPath; p != "" {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to create keyword index directory: %w", err)
		}
	}
	c.KeywordIndex, err = keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.Lookup = keyword.NewLookup(c.KeywordIndex, logger)

	ingestOpts := []indexer.Option{
		indexer.WithCatalog(store),
		indexer.WithPassageIndex(c.KeywordIndex),
		indexer.WithBatchSize(cfg.Embedding.BatchSize),
		indexer.WithExtensions(cfg.Corpus.Extensions),
	}
	if debug {
		ingestOpts = append(ingestOpts, indexer.WithLogger(logger))
	}
	c.Ingestor, err = indexer.NewIngestor(c.Embedder, cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap, ingestOpts...)
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// openRetriever loads the artifact. When it does not exist yet and buildMissing is set,
// the configured corpus source is ingested first.
func (c *Components) openRetriever(ctx context.Context, buildMissing bool) error {
	cfg := c.Config
	indexType := cfg.Retrieval.IndexType
	if indexType == string(vector.IndexTypeFAISS) && !vector.IsFAISSAvailable() {
		c.logger.Warn("faiss not available, falling back to flat index")
		indexType = string(vector.IndexTypeFlat)
	}

	if _, err := os.Stat(cfg.Corpus.ArtifactPath); errors.Is(err, os.ErrNotExist) {
		if !buildMissing || cfg.Corpus.Source == "" {
			return errs.New("main.openRetriever", errs.ErrIO,
				"no index at %s; run \"medibot ingest <file-or-dir>\" first", cfg.Corpus.ArtifactPath)
		}
		c.logger.Info("index not found, ingesting corpus",
			zap.String("source", cfg.Corpus.Source),
			zap.String("artifact", cfg.Corpus.ArtifactPath))
		if _, err := c.Ingestor.Ingest(ctx, cfg.Corpus.Source, cfg.Corpus.ArtifactPath); err != nil {
			return err
		}
	}

	retr, err := retriever.Open(ctx, cfg.Corpus.ArtifactPath, c.Embedder, cfg.Retrieval.TopK,
		retriever.WithIndexType(indexType),
		retriever.WithLogger(c.logger))
	if err != nil {
		return err
	}
	c.Retriever = retr
	if err := c.Lookup.Refresh(); err != nil {
		c.logger.Warn("failed to load spelling dictionary", zap.Error(err))
	}
	return nil
}

// newDoctor builds the consultation service over the loaded retriever. Audio input and
// spoken replies are enabled only when their API keys are present.
func (c *Components) newDoctor(withSpeech bool) error {
	cfg := c.Config
	completer, err := chat.NewOpenAIChat(cfg.Chat, c.logger)
	if err != nil {
		return err
	}
	opts := []consult.Option{
		consult.WithLogger(c.logger),
		consult.WithHistoryTurns(cfg.Chat.HistoryTurns),
	}
	if stt, err := chat.NewWhisperTranscriber(cfg.Chat, cfg.Speech); err == nil {
		opts = append(opts, consult.WithTranscriber(stt))
	} else {
		c.logger.Warn("audio input disabled", zap.Error(err))
	}
	if withSpeech {
		if tts, err := chat.NewOpenAISpeech(cfg.Speech); err == nil {
			opts = append(opts, consult.WithSynthesizer(tts))
		} else {
			c.logger.Warn("spoken replies disabled", zap.Error(err))
		}
	}
	sessions := consult.NewSessionStore(c.Storage, c.logger)
	c.Doctor = consult.NewDoctor(c.Retriever, completer, sessions, opts...)
	return nil
}

// startWatch re-ingests the corpus whenever its source changes.
func (c *Components) startWatch(ctx context.Context) (*watcher.Watcher, error) {
	cfg := c.Config
	if cfg.Corpus.Source == "" {
		return nil, errs.New("main.startWatch", errs.ErrConfig, "watch.enabled requires corpus.source")
	}
	reloader := watcher.NewReloader(c.Ingestor, c.Retriever, c.Lookup, cfg.Corpus.Source, cfg.Corpus.ArtifactPath, c.logger)
	return reloader.Watch(ctx,
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMs)*time.Millisecond),
		watcher.WithExtensions(cfg.Corpus.Extensions))
}
