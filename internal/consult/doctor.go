package consult

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/siddhikamalkar/AI-Medibot/internal/chat"
	"github.com/siddhikamalkar/AI-Medibot/internal/models"
)

// DefaultHistoryTurns is how many earlier exchanges are replayed to the model.
const DefaultHistoryTurns = 2

// ContextSource supplies retrieved medical context for a query. It never fails;
// unavailable context comes back as a sentinel string.
type ContextSource interface {
	Context(ctx context.Context, query string) string
}

// Request is one consultation input. Text wins over Audio when both are set.
type Request struct {
	Text      string
	Audio     io.Reader
	AudioName string
	Image     []byte
}

// Reply is the outcome of a consultation or follow-up. Query is the patient's text,
// transcribed when the input was audio. Notice is set instead of Text when the
// input could not be consulted on.
type Reply struct {
	Query     string `json:"query"`
	Text      string `json:"response"`
	Emergency bool   `json:"emergency"`
	Notice    string `json:"notice,omitempty"`
	Audio     []byte `json:"-"`
}

var errAudioDisabled = errors.New("audio input is not configured")

// Doctor answers patients using retrieved context and a chat model.
type Doctor struct {
	source       ContextSource
	completer    chat.Completer
	transcriber  chat.Transcriber
	synthesizer  chat.Synthesizer
	sessions     *SessionStore
	historyTurns int
	logger       *zap.Logger
}

// Option configures a Doctor.
type Option func(*Doctor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Doctor) { d.logger = l }
}

// WithTranscriber enables audio input.
func WithTranscriber(t chat.Transcriber) Option {
	return func(d *Doctor) { d.transcriber = t }
}

// WithSynthesizer enables spoken replies.
func WithSynthesizer(s chat.Synthesizer) Option {
	return func(d *Doctor) { d.synthesizer = s }
}

// WithHistoryTurns sets how many earlier exchanges are sent with each request.
func WithHistoryTurns(n int) Option {
	return func(d *Doctor) { d.historyTurns = n }
}

// NewDoctor creates a Doctor. sessions records every answered turn.
func NewDoctor(source ContextSource, completer chat.Completer, sessions *SessionStore, opts ...Option) *Doctor {
	d := &Doctor{
		source:       source,
		completer:    completer,
		sessions:     sessions,
		historyTurns: DefaultHistoryTurns,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Sessions returns the store the Doctor records into.
func (d *Doctor) Sessions() *SessionStore {
	return d.sessions
}

// Consult answers a first consultation within sess.
func (d *Doctor) Consult(ctx context.Context, sess *Session, req Request) (*Reply, error) {
	query := strings.TrimSpace(req.Text)
	if query == "" && req.Audio == nil {
		return &Reply{Notice: MsgNoSymptoms}, nil
	}
	if query == "" {
		if d.transcriber == nil {
			return nil, errAudioDisabled
		}
		text, err := d.transcriber.Transcribe(ctx, req.Audio, req.AudioName)
		if err != nil {
			d.logger.Warn("transcription failed", zap.String("session", sess.ID), zap.Error(err))
			text = ""
		}
		query = strings.TrimSpace(text)
		if query == "" {
			return &Reply{Notice: MsgAudioUnclear}, nil
		}
	}

	retrieved := d.source.Context(ctx, query)
	d.logger.Debug("retrieved medical context", zap.String("session", sess.ID), zap.Int("chars", len(retrieved)))

	response, err := d.complete(ctx, sess, ConsultPrompt(retrieved, query), req.Image)
	if err != nil {
		return nil, err
	}
	d.sessions.record(ctx, sess, models.TurnConsult, query, response)
	return d.finish(ctx, query, response, consultEmergency), nil
}

// FollowUp answers a follow-up question about previous within sess.
func (d *Doctor) FollowUp(ctx context.Context, sess *Session, previous, query string) (*Reply, error) {
	if strings.TrimSpace(query) == "" {
		return &Reply{Notice: MsgNoFollowUp}, nil
	}

	retrieved := d.source.Context(ctx, query)
	response, err := d.complete(ctx, sess, FollowUpPrompt(previous, query, retrieved), nil)
	if err != nil {
		return nil, err
	}
	d.sessions.record(ctx, sess, models.TurnFollowUp, query, response)
	return d.finish(ctx, query, response, followUpEmergency), nil
}

// Transcribe converts recorded speech to text.
func (d *Doctor) Transcribe(ctx context.Context, audio io.Reader, name string) (string, error) {
	if d.transcriber == nil {
		return "", errAudioDisabled
	}
	text, err := d.transcriber.Transcribe(ctx, audio, name)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return text, nil
}

// Speak converts text to MP3 audio.
func (d *Doctor) Speak(ctx context.Context, text string) ([]byte, error) {
	if d.synthesizer == nil {
		return nil, fmt.Errorf("speech output is not configured")
	}
	return d.synthesizer.Synthesize(ctx, text)
}

// TranscriptionEnabled reports whether audio input is accepted.
func (d *Doctor) TranscriptionEnabled() bool {
	return d.transcriber != nil
}

// SpeechEnabled reports whether replies are spoken.
func (d *Doctor) SpeechEnabled() bool {
	return d.synthesizer != nil
}

func (d *Doctor) complete(ctx context.Context, sess *Session, prompt string, image []byte) (string, error) {
	history := sess.History(d.historyTurns)
	messages := make([]chat.Message, 0, 2*len(history)+1)
	for _, t := range history {
		messages = append(messages,
			chat.Message{Role: chat.RoleUser, Content: t.Query},
			chat.Message{Role: chat.RoleAssistant, Content: t.Response})
	}
	messages = append(messages, chat.Message{Role: chat.RoleUser, Content: prompt, Image: image})

	response, err := d.completer.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to consult chat model: %w", err)
	}
	return response, nil
}

func (d *Doctor) finish(ctx context.Context, query, response, emergencySuffix string) *Reply {
	reply := &Reply{Query: query}
	if IsEmergency(response) {
		reply.Emergency = true
		response += emergencySuffix
	}
	reply.Text = StripAsterisks(response)

	if d.synthesizer != nil {
		audio, err := d.synthesizer.Synthesize(ctx, reply.Text)
		if err != nil {
			d.logger.Warn("failed to synthesize reply", zap.Error(err))
		} else {
			reply.Audio = audio
		}
	}
	return reply
}
