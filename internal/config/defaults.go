package config

// Embedding providers.
const (
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// Defaults for the retrieval core.
const (
	DefaultChunkSize    = 700
	DefaultChunkOverlap = 100
	DefaultTopK         = 3
)

// ApplyDefaults sets default values for any zero values in cfg.
// A zero chunk overlap is kept as given only when chunk_size was also set explicitly.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Corpus.ArtifactPath == "" {
		cfg.Corpus.ArtifactPath = "./data/index/medibot.idx"
	}
	if cfg.Corpus.ChunkSize == 0 {
		cfg.Corpus.ChunkSize = DefaultChunkSize
		if cfg.Corpus.ChunkOverlap == 0 {
			cfg.Corpus.ChunkOverlap = DefaultChunkOverlap
		}
	}
	if cfg.Corpus.Extensions == nil {
		cfg.Corpus.Extensions = []string{".pdf", ".txt", ".md", ".docx", ".odt", ".rtf", ".html", ".xlsx"}
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderONNX
	}
	if cfg.Embedding.ModelID == "" {
		cfg.Embedding.ModelID = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "./data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = DefaultTopK
	}
	if cfg.Retrieval.IndexType == "" {
		cfg.Retrieval.IndexType = "flat"
	}
	if cfg.Chat.BaseURL == "" {
		cfg.Chat.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "meta-llama/llama-4-scout-17b-16e-instruct"
	}
	if cfg.Chat.APIKeyEnv == "" {
		cfg.Chat.APIKeyEnv = "GROQ_API_KEY"
	}
	if cfg.Chat.HistoryTurns == 0 {
		cfg.Chat.HistoryTurns = 2
	}
	if cfg.Speech.STTModel == "" {
		cfg.Speech.STTModel = "whisper-large-v3"
	}
	if cfg.Speech.Language == "" {
		cfg.Speech.Language = "en"
	}
	if cfg.Speech.TTSModel == "" {
		cfg.Speech.TTSModel = "tts-1"
	}
	if cfg.Speech.TTSVoice == "" {
		cfg.Speech.TTSVoice = "alloy"
	}
	if cfg.Speech.TTSBaseURL == "" {
		cfg.Speech.TTSBaseURL = "https://api.openai.com/v1"
	}
	if cfg.Speech.TTSKeyEnv == "" {
		cfg.Speech.TTSKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/db/medibot.db"
	}
	if cfg.Storage.KeywordIndexPath == "" {
		cfg.Storage.KeywordIndexPath = "./data/index/passages.bleve"
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 400
	}
	if cfg.MCP.Transport == "" {
		cfg.MCP.Transport = "stdio"
	}
	if cfg.MCP.Addr == "" {
		cfg.MCP.Addr = "localhost:8081"
	}
	if cfg.Eval.Input == "" {
		cfg.Eval.Input = "./simulated_chatbot_responses.csv"
	}
	if cfg.Eval.Output == "" {
		cfg.Eval.Output = "./evaluated_chatbot_responses.xlsx"
	}
}
