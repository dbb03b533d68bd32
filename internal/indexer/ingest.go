package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/corpus"
	"github.com/siddhikamalkar/AI-Medibot/internal/embedding"
	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
	"github.com/siddhikamalkar/AI-Medibot/internal/extract"
	"github.com/siddhikamalkar/AI-Medibot/internal/fileid"
	"github.com/siddhikamalkar/AI-Medibot/internal/keyword"
	"github.com/siddhikamalkar/AI-Medibot/internal/models"
	"github.com/siddhikamalkar/AI-Medibot/internal/storage"
)

// DefaultBatchSize is the number of chunks sent to the embedder per call.
const DefaultBatchSize = 32

// Ingestor extracts, splits and embeds source documents and writes the artifact.
type Ingestor struct {
	extractor  *extract.Extractor
	embedder   embedding.Embedder
	chunkSize  int
	overlap    int
	batchSize  int
	extensions []string
	catalog    storage.Catalog      // optional
	passages   keyword.PassageIndex // optional
	logger     *zap.Logger          // optional
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingestor) { in.logger = l }
}

// WithCatalog records sources and passages in c after each successful ingest.
func WithCatalog(c storage.Catalog) Option {
	return func(in *Ingestor) { in.catalog = c }
}

// WithPassageIndex refreshes p with the new passages after each successful ingest.
func WithPassageIndex(p keyword.PassageIndex) Option {
	return func(in *Ingestor) { in.passages = p }
}

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(in *Ingestor) {
		if n > 0 {
			in.batchSize = n
		}
	}
}

// WithExtensions limits directory ingestion to files with these extensions.
func WithExtensions(exts []string) Option {
	return func(in *Ingestor) { in.extensions = exts }
}

// NewIngestor returns an Ingestor. Invalid chunking parameters are ErrConfig.
func NewIngestor(embedder embedding.Embedder, chunkSize, overlap int, opts ...Option) (*Ingestor, error) {
	if err := ValidateChunking(chunkSize, overlap); err != nil {
		return nil, err
	}
	in := &Ingestor{
		extractor: extract.NewExtractor(),
		embedder:  embedder,
		chunkSize: chunkSize,
		overlap:   overlap,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in, nil
}

// Report summarizes one ingest run. Artifact is what was written.
type Report struct {
	Artifact *corpus.Artifact
	Sources  []*models.Source
	Chunks   int
	ModelID  string
	Dim      int
	Duration time.Duration
}

// Ingest builds an artifact from src (a file or a directory) and saves it atomically to dst.
// On error nothing is written and any existing artifact at dst is left as it was.
func (in *Ingestor) Ingest(ctx context.Context, src, dst string) (*Report, error) {
	start := time.Now()
	art, sources, err := in.Build(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := corpus.Save(dst, art); err != nil {
		return nil, err
	}
	if in.logger != nil {
		in.logger.Info("artifact written",
			zap.String("path", dst),
			zap.Int("chunks", art.Len()),
			zap.String("model", art.ModelID))
	}
	in.record(ctx, art, sources)
	return &Report{
		Artifact: art,
		Sources:  sources,
		Chunks:   art.Len(),
		ModelID:  art.ModelID,
		Dim:      art.Dim,
		Duration: time.Since(start),
	}, nil
}

// Build extracts, splits and embeds src without writing anything.
func (in *Ingestor) Build(ctx context.Context, src string) (*corpus.Artifact, []*models.Source, error) {
	paths, err := in.sourceFiles(src)
	if err != nil {
		return nil, nil, err
	}

	var chunks []string
	sources := make([]*models.Source, 0, len(paths))
	for _, path := range paths {
		text, err := in.extractor.Extract(path)
		if err != nil {
			return nil, nil, err
		}
		parts, err := Split(text, in.chunkSize, in.overlap)
		if err != nil {
			return nil, nil, err
		}
		if len(parts) == 0 && in.logger != nil {
			in.logger.Warn("no text extracted", zap.String("path", path))
		}
		id := fileid.SourceID(path)
		sources = append(sources, &models.Source{
			ID:         id,
			Path:       path,
			Title:      filepath.Base(path),
			ChunkCount: len(parts),
			ModelID:    in.embedder.ModelID(),
		})
		chunks = append(chunks, parts...)
		if in.logger != nil {
			in.logger.Debug("source split", zap.String("path", path), zap.Int("chunks", len(parts)))
		}
	}

	vectors, err := EmbedAll(ctx, in.embedder, chunks, in.batchSize, in.logger)
	if err != nil {
		return nil, nil, err
	}
	art := &corpus.Artifact{
		ModelID: in.embedder.ModelID(),
		Dim:     in.embedder.Dimensions(),
		Chunks:  chunks,
		Vectors: vectors,
	}
	if err := art.Validate(); err != nil {
		return nil, nil, err
	}
	return art, sources, nil
}

// record mirrors the artifact into the catalog and the passage index. The artifact is
// authoritative, so failures here are logged and do not fail the ingest.
func (in *Ingestor) record(ctx context.Context, art *corpus.Artifact, sources []*models.Source) {
	if in.catalog == nil && in.passages == nil {
		return
	}
	passages := Passages(art, sources)
	if in.catalog != nil {
		if err := in.catalog.ReplaceCorpus(ctx, sources, passages); err != nil && in.logger != nil {
			in.logger.Warn("failed to update catalog", zap.Error(err))
		}
	}
	if in.passages != nil {
		if err := in.passages.Replace(ctx, passages); err != nil && in.logger != nil {
			in.logger.Warn("failed to update passage index", zap.Error(err))
		}
	}
}

// Passages pairs each chunk of art with the source it came from. Sources must be in ingest
// order with ChunkCount set, as returned by Build.
func Passages(art *corpus.Artifact, sources []*models.Source) []*models.Passage {
	out := make([]*models.Passage, 0, art.Len())
	ord := 0
	for _, src := range sources {
		for i := 0; i < src.ChunkCount && ord < art.Len(); i++ {
			out = append(out, &models.Passage{Ordinal: ord, SourceID: src.ID, Content: art.Chunks[ord]})
			ord++
		}
	}
	return out
}

// sourceFiles resolves src to the absolute paths to ingest, in lexical order for directories.
func (in *Ingestor) sourceFiles(src string) ([]string, error) {
	const op = "indexer.Ingest"
	abs, err := filepath.Abs(src)
	if err != nil {
		return nil, errs.Wrap(op, errs.ErrIO, fmt.Errorf("absolute path: %w", err))
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errs.Wrap(op, errs.ErrIO, fmt.Errorf("stat source: %w", err))
	}
	if !info.IsDir() {
		return []string{abs}, nil
	}

	var paths []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if len(in.extensions) > 0 && !extract.Supports(filepath.Ext(path), in.extensions) {
			return nil
		}
		// Resolve symlinks so only regular files are ingested.
		if fi, statErr := os.Stat(path); statErr != nil || !fi.Mode().IsRegular() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(op, errs.ErrIO, fmt.Errorf("walk %s: %w", abs, err))
	}
	if len(paths) == 0 {
		return nil, errs.New(op, errs.ErrIO, "no supported files under %s", abs)
	}
	sort.Strings(paths)
	return paths, nil
}

// EmbedAll embeds chunks in batches of batchSize, preserving order.
func EmbedAll(ctx context.Context, embedder embedding.Embedder, chunks []string, batchSize int, logger *zap.Logger) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch, err := embedder.EmbedBatch(ctx, chunks[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
		if logger != nil {
			logger.Debug("embedded batch", zap.Int("done", end), zap.Int("total", len(chunks)))
		}
	}
	return vectors, nil
}
