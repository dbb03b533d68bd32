// Package config provides configuration loading and structs for MediBot.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Chat      ChatConfig      `yaml:"chat"`
	Speech    SpeechConfig    `yaml:"speech"`
	Storage   StorageConfig   `yaml:"storage"`
	Watch     WatchConfig     `yaml:"watch"`
	MCP       MCPConfig       `yaml:"mcp"`
	Eval      EvalConfig      `yaml:"eval"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CorpusConfig describes the source corpus and where the built index lives.
type CorpusConfig struct {
	Source       string   `yaml:"source"`
	ArtifactPath string   `yaml:"artifact_path"`
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Extensions   []string `yaml:"extensions"`
}

// EmbeddingConfig selects and tunes the embedding model.
type EmbeddingConfig struct {
	// Provider is one of "onnx", "openai" or "hash".
	Provider   string `yaml:"provider"`
	ModelID    string `yaml:"model_id"`
	ModelPath  string `yaml:"model_path"`
	// VocabPath is the WordPiece vocab.txt; empty means vocab.txt next to ModelPath.
	VocabPath  string `yaml:"vocab_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	BatchSize  int    `yaml:"batch_size"`
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
}

// RetrievalConfig holds query-time settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
	// IndexType is "flat" or "faiss".
	IndexType string `yaml:"index_type"`
}

// ChatConfig holds the chat-completion service settings.
type ChatConfig struct {
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	APIKeyEnv    string `yaml:"api_key_env"`
	HistoryTurns int    `yaml:"history_turns"`
}

// SpeechConfig holds speech-to-text and text-to-speech settings.
type SpeechConfig struct {
	STTModel   string `yaml:"stt_model"`
	Language   string `yaml:"language"`
	TTSModel   string `yaml:"tts_model"`
	TTSVoice   string `yaml:"tts_voice"`
	TTSBaseURL string `yaml:"tts_base_url"`
	TTSKeyEnv  string `yaml:"tts_api_key_env"`
}

// StorageConfig holds paths for the catalog database and the passage index.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

// WatchConfig controls re-ingestion when the corpus source changes.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMs int  `yaml:"debounce_ms"`
}

// MCPConfig holds MCP tool server settings.
type MCPConfig struct {
	// Transport is "stdio" or "sse".
	Transport string `yaml:"transport"`
	Addr      string `yaml:"addr"`
}

// EvalConfig holds default paths for the evaluation report.
type EvalConfig struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// Load reads and parses the config file at path, expands paths, applies defaults and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap("config.Load", errs.ErrIO, fmt.Errorf("failed to read config: %w", err))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.Wrap("config.Load", errs.ErrConfig, fmt.Errorf("failed to parse config: %w", err))
	}

	ApplyDefaults(&cfg)
	cfg.resolvePaths(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every default applied, for running without a config file.
// Relative paths resolve against baseDir.
func Default(baseDir string) *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.resolvePaths(baseDir)
	return &cfg
}

func (c *Config) resolvePaths(baseDir string) {
	c.Corpus.Source = expandPath(c.Corpus.Source, baseDir)
	c.Corpus.ArtifactPath = expandPath(c.Corpus.ArtifactPath, baseDir)
	c.Embedding.ModelPath = expandPath(c.Embedding.ModelPath, baseDir)
	c.Embedding.VocabPath = expandPath(c.Embedding.VocabPath, baseDir)
	c.Storage.DatabasePath = expandPath(c.Storage.DatabasePath, baseDir)
	c.Storage.KeywordIndexPath = expandPath(c.Storage.KeywordIndexPath, baseDir)
	c.Eval.Input = expandPath(c.Eval.Input, baseDir)
	c.Eval.Output = expandPath(c.Eval.Output, baseDir)
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Corpus.ChunkSize <= 0 {
		return errs.New("config.Validate", errs.ErrConfig, "corpus.chunk_size must be positive, got %d", c.Corpus.ChunkSize)
	}
	if c.Corpus.ChunkOverlap < 0 || c.Corpus.ChunkOverlap >= c.Corpus.ChunkSize {
		return errs.New("config.Validate", errs.ErrConfig,
			"corpus.chunk_overlap must be in [0, %d), got %d", c.Corpus.ChunkSize, c.Corpus.ChunkOverlap)
	}
	if c.Retrieval.TopK <= 0 {
		return errs.New("config.Validate", errs.ErrConfig, "retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	switch c.Retrieval.IndexType {
	case "flat", "faiss":
	default:
		return errs.New("config.Validate", errs.ErrConfig, "unknown retrieval.index_type %q", c.Retrieval.IndexType)
	}
	switch c.Embedding.Provider {
	case ProviderONNX, ProviderOpenAI, ProviderHash:
	default:
		return errs.New("config.Validate", errs.ErrConfig, "unknown embedding.provider %q", c.Embedding.Provider)
	}
	switch c.MCP.Transport {
	case "stdio", "sse":
	default:
		return errs.New("config.Validate", errs.ErrConfig, "unknown mcp.transport %q", c.MCP.Transport)
	}
	return nil
}

// APIKey returns the value of the environment variable named by envName.
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(envName))
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
