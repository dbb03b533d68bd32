package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/embedding"
	"github.com/siddhikamalkar/AI-Medibot/internal/indexer"
	"github.com/siddhikamalkar/AI-Medibot/internal/retriever"
)

func newReloader(t *testing.T) (*Reloader, *retriever.Retriever, string) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "corpus")
	if err := mkdirAll(src); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(src, "a.txt"), "Measles is a highly contagious viral disease."); err != nil {
		t.Fatal(err)
	}

	emb := embedding.NewHashEmbedder(16)
	ing, err := indexer.NewIngestor(emb, 200, 20, indexer.WithExtensions([]string{".txt"}))
	if err != nil {
		t.Fatal(err)
	}
	artifactPath := filepath.Join(dir, "index", "medibot.idx")
	report, err := ing.Ingest(ctx, src, artifactPath)
	if err != nil {
		t.Fatal(err)
	}
	retr, err := retriever.New(ctx, emb, report.Artifact, 1)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = retr.Close() })
	return NewReloader(ing, retr, nil, src, artifactPath, zap.NewNop()), retr, src
}

func TestReloader_Reload(t *testing.T) {
	r, retr, src := newReloader(t)
	if err := writeFile(filepath.Join(src, "b.txt"), "Mumps causes swelling of the salivary glands."); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := retr.Artifact().Len(); n != 2 {
		t.Fatalf("chunks after reload = %d, want 2", n)
	}
	got, err := retr.Retrieve(context.Background(), "Mumps causes swelling of the salivary glands.")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "Mumps") {
		t.Errorf("retrieved %q", got)
	}
}

func TestReloader_failureKeepsPrevious(t *testing.T) {
	r, retr, src := newReloader(t)
	before := retr.Artifact()
	if err := os.Remove(filepath.Join(src, "a.txt")); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(context.Background()); err == nil {
		t.Fatal("expected error for a corpus with no files")
	}
	if retr.Artifact() != before {
		t.Error("failed reload should keep the previous artifact")
	}
}

func TestReloader_Watch(t *testing.T) {
	r, retr, src := newReloader(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w, err := r.Watch(ctx, WithDebounce(50*time.Millisecond), WithExtensions([]string{".txt"}))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(src, "c.txt"), "Rubella is also called German measles."); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 3*time.Second, func() bool { return retr.Artifact().Len() == 2 }) {
		t.Errorf("chunks = %d, want the watcher to reload to 2", retr.Artifact().Len())
	}
}
