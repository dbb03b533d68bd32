package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
corpus:
  source: "./data/gale.pdf"
  chunk_size: 500
  chunk_overlap: 50
retrieval:
  top_k: 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Corpus.ChunkSize != 500 || cfg.Corpus.ChunkOverlap != 50 {
		t.Errorf("unexpected chunking: %+v", cfg.Corpus)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("top_k = %d, want 5", cfg.Retrieval.TopK)
	}
	if want := filepath.Join(filepath.Dir(path), "data", "gale.pdf"); cfg.Corpus.Source != want {
		t.Errorf("source = %s, want %s", cfg.Corpus.Source, want)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_vocabPath(t *testing.T) {
	path := writeConfig(t, "embedding:\n  model_path: \"./models/minilm.onnx\"\n  vocab_path: \"./models/vocab.txt\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(filepath.Dir(path), "models", "vocab.txt"); cfg.Embedding.VocabPath != want {
		t.Errorf("vocab_path = %s, want %s", cfg.Embedding.VocabPath, want)
	}

	cfg, err = Load(writeConfig(t, "debug: false\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.VocabPath != "" {
		t.Errorf("vocab_path should stay empty when unset, got %s", cfg.Embedding.VocabPath)
	}
}

func TestLoad_defaults(t *testing.T) {
	path := writeConfig(t, "debug: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
	if cfg.Corpus.ChunkSize != 700 || cfg.Corpus.ChunkOverlap != 100 {
		t.Errorf("chunking defaults: got %d/%d", cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("top_k default: got %d", cfg.Retrieval.TopK)
	}
	if cfg.Embedding.Dimensions != 384 || cfg.Embedding.Provider != ProviderONNX {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Chat.Model != "meta-llama/llama-4-scout-17b-16e-instruct" {
		t.Errorf("chat model default: %s", cfg.Chat.Model)
	}
	if cfg.Speech.STTModel != "whisper-large-v3" || cfg.Speech.Language != "en" {
		t.Errorf("speech defaults: %+v", cfg.Speech)
	}
	wantArtifact := filepath.Join(filepath.Dir(path), "data", "index", "medibot.idx")
	if cfg.Corpus.ArtifactPath != wantArtifact {
		t.Errorf("artifact path = %s, want %s", cfg.Corpus.ArtifactPath, wantArtifact)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"overlap equals size", "corpus:\n  chunk_size: 100\n  chunk_overlap: 100\n"},
		{"negative size", "corpus:\n  chunk_size: -1\n"},
		{"negative top_k", "retrieval:\n  top_k: -2\n"},
		{"unknown index type", "retrieval:\n  index_type: hnsw\n"},
		{"unknown provider", "embedding:\n  provider: word2vec\n"},
		{"unknown transport", "mcp:\n  transport: grpc\n"},
		{"malformed yaml", "corpus: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, errs.ErrConfig) {
				t.Errorf("Load error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, errs.ErrIO) {
		t.Errorf("Load error = %v, want ErrIO", err)
	}
}

func TestApplyDefaults_keepsExplicitZeroOverlap(t *testing.T) {
	cfg := &Config{Corpus: CorpusConfig{ChunkSize: 300}}
	ApplyDefaults(cfg)
	if cfg.Corpus.ChunkOverlap != 0 {
		t.Errorf("overlap = %d, want 0 when chunk_size is explicit", cfg.Corpus.ChunkOverlap)
	}
}

func TestDefault(t *testing.T) {
	base := t.TempDir()
	cfg := Default(base)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Storage.DatabasePath != filepath.Join(base, "data", "db", "medibot.db") {
		t.Errorf("database path: %s", cfg.Storage.DatabasePath)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := Default(dir)
	cfg.Server.Port = 9090
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}

func TestAPIKey(t *testing.T) {
	t.Setenv("MEDIBOT_TEST_KEY", "  secret \n")
	if got := APIKey("MEDIBOT_TEST_KEY"); got != "secret" {
		t.Errorf("APIKey = %q", got)
	}
	if APIKey("") != "" {
		t.Error("empty env name should yield empty key")
	}
}
