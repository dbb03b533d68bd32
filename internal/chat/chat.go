// Package chat reaches the hosted language, speech-to-text and text-to-speech models.
package chat

import (
	"context"
	"io"
)

// Roles used in Message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message. Image, when set, is JPEG data sent alongside Content.
type Message struct {
	Role    string
	Content string
	Image   []byte
}

// Completer produces the model's reply to a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Transcriber converts recorded speech to text. filename carries the audio format by extension.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Synthesizer converts text to MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
