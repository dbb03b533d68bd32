package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/config"
	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
	"github.com/siddhikamalkar/AI-Medibot/internal/keyword"
	"github.com/siddhikamalkar/AI-Medibot/internal/server"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	corpusDir := filepath.Join(dir, "corpus")
	if err := os.MkdirAll(corpusDir, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"bronchitis.txt": "Bronchitis is inflammation of the bronchial tubes, usually after a cold.",
		"migraine.txt":   "Migraine is a recurring headache, often with nausea and sensitivity to light.",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(corpusDir, name), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default(dir)
	cfg.Embedding.Provider = config.ProviderHash
	cfg.Embedding.Dimensions = 16
	cfg.Corpus.ChunkSize = 200
	cfg.Corpus.ChunkOverlap = 20
	cfg.Corpus.Source = corpusDir
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestPipeline_ingestRetrieveSearchStatus(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	components, err := initializeComponents(cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()

	report, err := components.Ingestor.Ingest(ctx, cfg.Corpus.Source, cfg.Corpus.ArtifactPath)
	if err != nil {
		t.Fatal(err)
	}
	if report.Chunks != 2 || len(report.Sources) != 2 {
		t.Fatalf("ingested %d chunks from %d sources, want 2 and 2", report.Chunks, len(report.Sources))
	}

	if err := components.openRetriever(ctx, false); err != nil {
		t.Fatal(err)
	}
	chunks := components.Retriever.Artifact().Chunks
	passages, err := components.Retriever.Passages(ctx, chunks[1], 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(passages) != 1 || passages[0].Content != chunks[1] {
		t.Errorf("exact chunk query returned %+v", passages)
	}

	resp, err := searchLocal(ctx, components.Lookup, "bronchial", 5, false)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || !strings.Contains(resp.Passages[0].Content, "Bronchitis") {
		t.Errorf("lexical search = %+v", resp)
	}

	status, err := server.CollectStatus(ctx, components.Retriever, components.Storage, components.Lookup, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if status.Chunks != 2 || status.Sources != 2 || status.CatalogPassages != 2 || status.KeywordPassages != 2 {
		t.Errorf("status = %+v", status)
	}
	if status.ModelID != "hash-sin-v1/16" || status.ArtifactBytes == 0 {
		t.Errorf("status artifact fields = %+v", status)
	}
}

func TestOpenRetriever_missingArtifact(t *testing.T) {
	cfg := testConfig(t)
	components, err := initializeComponents(cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()

	err = components.openRetriever(context.Background(), false)
	if !errors.Is(err, errs.ErrIO) {
		t.Fatalf("openRetriever error = %v, want ErrIO", err)
	}
}

func TestOpenRetriever_buildsMissingArtifact(t *testing.T) {
	cfg := testConfig(t)
	components, err := initializeComponents(cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()

	if err := components.openRetriever(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.Corpus.ArtifactPath); err != nil {
		t.Errorf("artifact should have been written: %v", err)
	}
	if got := components.Retriever.Artifact().Len(); got != 2 {
		t.Errorf("artifact chunks = %d, want 2", got)
	}
}

func TestNewDoctor_requiresChatKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chat.APIKeyEnv = "MEDIBOT_TEST_MISSING_KEY"
	t.Setenv("MEDIBOT_TEST_MISSING_KEY", "")
	components, err := initializeComponents(cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()

	if err := components.newDoctor(false); !errors.Is(err, errs.ErrConfig) {
		t.Errorf("newDoctor error = %v, want ErrConfig", err)
	}
	if components.Doctor != nil {
		t.Error("doctor should stay nil without a chat key")
	}
}

func TestIngestCorpus_releasesComponentsOnFailure(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	var out bytes.Buffer

	missing := filepath.Join(t.TempDir(), "absent.pdf")
	if err := ingestCorpus(ctx, cfg, zap.NewNop(), missing, cfg.Corpus.ArtifactPath, &out); !errors.Is(err, errs.ErrIO) {
		t.Fatalf("ingestCorpus error = %v, want ErrIO", err)
	}
	if out.Len() != 0 {
		t.Errorf("failed ingest printed a report: %q", out.String())
	}

	// The keyword index lock must be free again once ingestCorpus returns.
	opened := make(chan error, 1)
	go func() {
		idx, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
		if err == nil {
			err = idx.Close()
		}
		opened <- err
	}()
	select {
	case err := <-opened:
		if err != nil {
			t.Fatalf("reopen keyword index: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("keyword index still locked after a failed ingest")
	}

	if err := ingestCorpus(ctx, cfg, zap.NewNop(), cfg.Corpus.Source, cfg.Corpus.ArtifactPath, &out); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !strings.Contains(out.String(), "Ingested 2 source(s)") {
		t.Errorf("report = %q", out.String())
	}
}
