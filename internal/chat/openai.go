package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/config"
	"github.com/siddhikamalkar/AI-Medibot/internal/errs"
)

func newClient(baseURL, apiKey, keyEnv string) (*openai.Client, error) {
	if apiKey == "" {
		return nil, errs.New("chat.newClient", errs.ErrConfig, "%s is not set", keyEnv)
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg), nil
}

// OpenAIChat is a Completer for any OpenAI-compatible chat endpoint (Groq by default).
type OpenAIChat struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIChat builds a Completer from cfg; the API key is read from cfg.APIKeyEnv.
func NewOpenAIChat(cfg config.ChatConfig, logger *zap.Logger) (*OpenAIChat, error) {
	client, err := newClient(cfg.BaseURL, config.APIKey(cfg.APIKeyEnv), cfg.APIKeyEnv)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIChat{client: client, model: cfg.Model, logger: logger}, nil
}

// Complete sends messages and returns the first choice's content.
func (c *OpenAIChat) Complete(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAIMessages(messages),
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	c.logger.Debug("chat completion",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		if len(m.Image) == 0 {
			out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
			continue
		}
		out[i] = openai.ChatCompletionMessage{
			Role: m.Role,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: m.Content},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: ImageDataURL(m.Image)}},
			},
		}
	}
	return out
}

// ImageDataURL encodes JPEG bytes as a data URL.
func ImageDataURL(jpeg []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
}

// WhisperTranscriber is a Transcriber backed by an OpenAI-compatible audio endpoint.
type WhisperTranscriber struct {
	client   *openai.Client
	model    string
	language string
}

// NewWhisperTranscriber uses the chat endpoint and key with the speech-to-text model from cfg.
func NewWhisperTranscriber(chatCfg config.ChatConfig, cfg config.SpeechConfig) (*WhisperTranscriber, error) {
	client, err := newClient(chatCfg.BaseURL, config.APIKey(chatCfg.APIKeyEnv), chatCfg.APIKeyEnv)
	if err != nil {
		return nil, err
	}
	return &WhisperTranscriber{client: client, model: cfg.STTModel, language: cfg.Language}, nil
}

// Transcribe spools audio to a temp file, sends it, and removes the file.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".wav"
	}
	tmp, err := os.CreateTemp("", "medibot-audio-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp audio file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, audio); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write temp audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp audio file: %w", err)
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: tmp.Name(),
		Language: w.language,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return resp.Text, nil
}

// OpenAISpeech is a Synthesizer backed by an OpenAI-compatible speech endpoint.
type OpenAISpeech struct {
	client *openai.Client
	model  string
	voice  string
}

// NewOpenAISpeech builds a Synthesizer from cfg; the API key is read from cfg.TTSKeyEnv.
func NewOpenAISpeech(cfg config.SpeechConfig) (*OpenAISpeech, error) {
	client, err := newClient(cfg.TTSBaseURL, config.APIKey(cfg.TTSKeyEnv), cfg.TTSKeyEnv)
	if err != nil {
		return nil, err
	}
	return &OpenAISpeech{client: client, model: cfg.TTSModel, voice: cfg.TTSVoice}, nil
}

// Synthesize returns MP3 audio for text.
func (s *OpenAISpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Close()
	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech audio: %w", err)
	}
	return audio, nil
}
