package watcher

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/indexer"
	"github.com/siddhikamalkar/AI-Medibot/internal/keyword"
	"github.com/siddhikamalkar/AI-Medibot/internal/retriever"
)

// Reloader rebuilds the artifact from the corpus source and swaps it into the retriever.
// A failed rebuild leaves the previous artifact serving.
type Reloader struct {
	ingestor     *indexer.Ingestor
	retriever    *retriever.Retriever
	lookup       *keyword.Lookup
	source       string
	artifactPath string
	logger       *zap.Logger
	mu           sync.Mutex
}

// NewReloader creates a Reloader. lookup may be nil.
func NewReloader(ing *indexer.Ingestor, retr *retriever.Retriever, lookup *keyword.Lookup, source, artifactPath string, logger *zap.Logger) *Reloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reloader{
		ingestor:     ing,
		retriever:    retr,
		lookup:       lookup,
		source:       source,
		artifactPath: artifactPath,
		logger:       logger,
	}
}

// Reload runs one ingest and swap. Concurrent calls are serialized.
func (r *Reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, err := r.ingestor.Ingest(ctx, r.source, r.artifactPath)
	if err != nil {
		r.logger.Error("re-ingest failed; keeping previous artifact", zap.String("source", r.source), zap.Error(err))
		return err
	}
	if err := r.retriever.Swap(ctx, report.Artifact); err != nil {
		r.logger.Error("swap failed; keeping previous artifact", zap.Error(err))
		return err
	}
	if r.lookup != nil {
		if err := r.lookup.Refresh(); err != nil {
			r.logger.Warn("failed to refresh spelling dictionary", zap.Error(err))
		}
	}
	r.logger.Info("corpus reloaded",
		zap.Int("sources", len(report.Sources)),
		zap.Int("chunks", report.Chunks),
		zap.Duration("duration", report.Duration))
	return nil
}

// Watch starts a Watcher on the source that calls Reload on every change.
func (r *Reloader) Watch(ctx context.Context, opts ...Option) (*Watcher, error) {
	w, err := NewWatcher(r.source, func() { _ = r.Reload(ctx) }, append([]Option{WithLogger(r.logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}
