package consult

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/siddhikamalkar/AI-Medibot/internal/chat"
	"github.com/siddhikamalkar/AI-Medibot/internal/models"
)

type fakeSource struct {
	queries []string
}

func (f *fakeSource) Context(_ context.Context, query string) string {
	f.queries = append(f.queries, query)
	return "Migraine is a primary headache disorder."
}

type fakeCompleter struct {
	reply string
	err   error
	calls [][]chat.Message
}

func (f *fakeCompleter) Complete(_ context.Context, messages []chat.Message) (string, error) {
	f.calls = append(f.calls, messages)
	return f.reply, f.err
}

type fakeTranscriber struct {
	text string
	err  error
	got  string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio io.Reader, _ string) (string, error) {
	b, _ := io.ReadAll(audio)
	f.got = string(b)
	return f.text, f.err
}

type fakeSynthesizer struct {
	texts []string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.texts = append(f.texts, text)
	return []byte("mp3"), nil
}

type memTurns struct {
	mu    sync.Mutex
	turns map[string][]*models.Turn
}

func newMemTurns() *memTurns {
	return &memTurns{turns: make(map[string][]*models.Turn)}
}

func (m *memTurns) AppendTurn(_ context.Context, t *models.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.turns[t.SessionID] = append(m.turns[t.SessionID], &cp)
	return nil
}

func (m *memTurns) ListTurns(_ context.Context, id string) ([]*models.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.turns[id], nil
}

func (m *memTurns) DeleteTurns(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.turns, id)
	return nil
}

func TestDoctor_Consult(t *testing.T) {
	src := &fakeSource{}
	llm := &fakeCompleter{reply: "**Likely** a migraine."}
	store := NewSessionStore(nil, nil)
	doc := NewDoctor(src, llm, store)
	sess := store.Create()

	reply, err := doc.Consult(context.Background(), sess, Request{Text: "  throbbing headache  ", Image: []byte{1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Query != "throbbing headache" {
		t.Errorf("query = %q", reply.Query)
	}
	if reply.Text != "Likely a migraine." {
		t.Errorf("text = %q", reply.Text)
	}
	if reply.Emergency || reply.Notice != "" {
		t.Errorf("unexpected flags: %+v", reply)
	}
	if len(src.queries) != 1 || src.queries[0] != "throbbing headache" {
		t.Errorf("retrieval queries = %v", src.queries)
	}

	msgs := llm.calls[0]
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1 with empty history", len(msgs))
	}
	if !strings.Contains(msgs[0].Content, "Relevant Medical Knowledge:\nMigraine is a primary headache disorder.") {
		t.Errorf("prompt lacks context: %q", msgs[0].Content)
	}
	if !strings.Contains(msgs[0].Content, "Patient says: throbbing headache") {
		t.Errorf("prompt lacks query: %q", msgs[0].Content)
	}
	if len(msgs[0].Image) != 2 {
		t.Error("image should ride on the user message")
	}

	turns := sess.Turns()
	if len(turns) != 1 || turns[0].Response != "**Likely** a migraine." {
		t.Errorf("session should keep the raw response, got %+v", turns)
	}
}

func TestDoctor_Consult_notices(t *testing.T) {
	llm := &fakeCompleter{reply: "unused"}
	store := NewSessionStore(nil, nil)
	doc := NewDoctor(&fakeSource{}, llm, store, WithTranscriber(&fakeTranscriber{text: "  "}))
	sess := store.Create()

	reply, err := doc.Consult(context.Background(), sess, Request{Text: "   "})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Notice != MsgNoSymptoms {
		t.Errorf("notice = %q", reply.Notice)
	}

	reply, err = doc.Consult(context.Background(), sess, Request{Audio: strings.NewReader("wav"), AudioName: "a.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Notice != MsgAudioUnclear {
		t.Errorf("notice = %q", reply.Notice)
	}
	if len(llm.calls) != 0 || sess.Len() != 0 {
		t.Error("notices must not reach the model or the session")
	}
}

func TestDoctor_Consult_audio(t *testing.T) {
	tr := &fakeTranscriber{text: "I feel dizzy"}
	store := NewSessionStore(nil, nil)
	doc := NewDoctor(&fakeSource{}, &fakeCompleter{reply: "Hydrate."}, store, WithTranscriber(tr))

	reply, err := doc.Consult(context.Background(), store.Create(), Request{Audio: strings.NewReader("RIFF"), AudioName: "a.wav"})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Query != "I feel dizzy" || tr.got != "RIFF" {
		t.Errorf("query = %q, transcriber got %q", reply.Query, tr.got)
	}
}

func TestDoctor_Consult_textWinsOverAudio(t *testing.T) {
	tr := &fakeTranscriber{text: "from audio"}
	store := NewSessionStore(nil, nil)
	doc := NewDoctor(&fakeSource{}, &fakeCompleter{reply: "ok"}, store, WithTranscriber(tr))

	reply, err := doc.Consult(context.Background(), store.Create(), Request{Text: "typed", Audio: strings.NewReader("x")})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Query != "typed" || tr.got != "" {
		t.Errorf("typed text should be used without transcribing, got %q", reply.Query)
	}
}

func TestDoctor_Consult_audioWithoutTranscriber(t *testing.T) {
	store := NewSessionStore(nil, nil)
	doc := NewDoctor(&fakeSource{}, &fakeCompleter{}, store)
	if _, err := doc.Consult(context.Background(), store.Create(), Request{Audio: strings.NewReader("x")}); err == nil {
		t.Error("expected an error when audio input is not configured")
	}
}

func TestDoctor_Consult_transcriptionFailure(t *testing.T) {
	tr := &fakeTranscriber{err: errors.New("whisper unavailable")}
	llm := &fakeCompleter{reply: "unused"}
	store := NewSessionStore(nil, nil)
	doc := NewDoctor(&fakeSource{}, llm, store, WithTranscriber(tr))
	sess := store.Create()

	reply, err := doc.Consult(context.Background(), sess, Request{Audio: strings.NewReader("RIFF"), AudioName: "a.wav"})
	if err != nil {
		t.Fatalf("transcription failure should become a notice, got %v", err)
	}
	if reply.Notice != MsgAudioUnclear {
		t.Errorf("Notice = %q, want %q", reply.Notice, MsgAudioUnclear)
	}
	if len(llm.calls) != 0 || sess.Len() != 0 {
		t.Error("failed transcription must not reach the model or the session")
	}
}

func TestDoctor_emergency(t *testing.T) {
	store := NewSessionStore(nil, nil)
	doc := NewDoctor(&fakeSource{}, &fakeCompleter{reply: "This could be a *Heart Attack*."}, store)
	sess := store.Create()

	reply, err := doc.Consult(context.Background(), sess, Request{Text: "pain in left arm"})
	if err != nil {
		t.Fatal(err)
	}
	want := "This could be a Heart Attack.\n\n⚠️ Please seek immediate medical attention!"
	if reply.Text != want || !reply.Emergency {
		t.Errorf("reply = %q", reply.Text)
	}

	reply, err = doc.FollowUp(context.Background(), sess, "prev", "and now?")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(reply.Text, "\n\n⚠️ Follow-up indicates possible emergency. Seek medical help!") {
		t.Errorf("follow-up reply = %q", reply.Text)
	}
	if strings.Contains(sess.Log(), "⚠️") {
		t.Error("the log keeps the raw response without the warning")
	}
}

func TestDoctor_FollowUp(t *testing.T) {
	llm := &fakeCompleter{reply: "Take ibuprofen."}
	store := NewSessionStore(nil, nil)
	doc := NewDoctor(&fakeSource{}, llm, store)
	sess := store.Create()

	for _, q := range []string{"headache", "nausea", "light hurts"} {
		if _, err := doc.Consult(context.Background(), sess, Request{Text: q}); err != nil {
			t.Fatal(err)
		}
	}

	reply, err := doc.FollowUp(context.Background(), sess, "Likely a migraine.", "Is it serious?")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Query != "Is it serious?" || reply.Text != "Take ibuprofen." {
		t.Errorf("reply = %+v", reply)
	}

	msgs := llm.calls[len(llm.calls)-1]
	if len(msgs) != 5 {
		t.Fatalf("messages = %d, want two history exchanges plus the prompt", len(msgs))
	}
	if msgs[0].Content != "nausea" || msgs[2].Content != "light hurts" || msgs[1].Role != chat.RoleAssistant {
		t.Errorf("history should be the last two exchanges: %+v", msgs[:4])
	}
	prompt := msgs[4].Content
	if !strings.Contains(prompt, "Previous Response:\nLikely a migraine.") || !strings.Contains(prompt, "User Follow-up:\nIs it serious?") {
		t.Errorf("follow-up prompt = %q", prompt)
	}

	reply, err = doc.FollowUp(context.Background(), sess, "x", "")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Notice != MsgNoFollowUp {
		t.Errorf("notice = %q", reply.Notice)
	}
}

func TestDoctor_completionError(t *testing.T) {
	store := NewSessionStore(nil, nil)
	doc := NewDoctor(&fakeSource{}, &fakeCompleter{err: errors.New("rate limited")}, store)
	sess := store.Create()
	if _, err := doc.Consult(context.Background(), sess, Request{Text: "cough"}); err == nil {
		t.Fatal("expected error")
	}
	if sess.Len() != 0 {
		t.Error("failed consultations are not recorded")
	}
}

func TestDoctor_speech(t *testing.T) {
	synth := &fakeSynthesizer{}
	store := NewSessionStore(nil, nil)
	doc := NewDoctor(&fakeSource{}, &fakeCompleter{reply: "**Rest**"}, store, WithSynthesizer(synth))

	reply, err := doc.Consult(context.Background(), store.Create(), Request{Text: "tired"})
	if err != nil {
		t.Fatal(err)
	}
	if string(reply.Audio) != "mp3" {
		t.Errorf("audio = %q", reply.Audio)
	}
	if len(synth.texts) != 1 || synth.texts[0] != "Rest" {
		t.Errorf("synthesized %v, want the cleaned text", synth.texts)
	}
}

func TestDoctor_persistsTurns(t *testing.T) {
	turns := newMemTurns()
	store := NewSessionStore(turns, nil)
	doc := NewDoctor(&fakeSource{}, &fakeCompleter{reply: "ok"}, store)
	sess := store.Create()

	if _, err := doc.Consult(context.Background(), sess, Request{Text: "fever"}); err != nil {
		t.Fatal(err)
	}
	if _, err := doc.FollowUp(context.Background(), sess, "ok", "still hot"); err != nil {
		t.Fatal(err)
	}

	saved, _ := turns.ListTurns(context.Background(), sess.ID)
	if len(saved) != 2 || saved[1].Kind != models.TurnFollowUp {
		t.Fatalf("persisted turns = %+v", saved)
	}

	fresh := NewSessionStore(turns, nil)
	restored, err := fresh.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if restored.Log() != sess.Log() {
		t.Errorf("restored log = %q, want %q", restored.Log(), sess.Log())
	}
}
