package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/siddhikamalkar/AI-Medibot/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "db", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_ReplaceCorpus(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	sources := []*models.Source{
		{ID: "src:a", Path: "/corpus/a.pdf", Title: "a.pdf", ChunkCount: 2, ModelID: "m"},
		{ID: "src:b", Path: "/corpus/b.txt", Title: "b.txt", ChunkCount: 1, ModelID: "m"},
	}
	passages := []*models.Passage{
		{Ordinal: 0, SourceID: "src:a", Content: "Acne is a skin condition."},
		{Ordinal: 1, SourceID: "src:a", Content: "It affects hair follicles."},
		{Ordinal: 2, SourceID: "src:b", Content: "Bronchitis inflames the airways."},
	}
	if err := store.ReplaceCorpus(ctx, sources, passages); err != nil {
		t.Fatal(err)
	}
	if sources[0].IngestedAt.IsZero() {
		t.Error("IngestedAt should be set")
	}

	n, _ := store.CountSources(ctx)
	m, _ := store.CountPassages(ctx)
	if n != 2 || m != 3 {
		t.Errorf("counts = %d sources, %d passages", n, m)
	}

	p, err := store.GetPassage(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if p.SourceID != "src:b" || p.Content != "Bronchitis inflames the airways." {
		t.Errorf("passage = %+v", p)
	}

	listed, err := store.ListSources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 2 || listed[0].Path != "/corpus/a.pdf" || listed[1].ChunkCount != 1 {
		t.Errorf("sources = %+v", listed)
	}

	// A second replace drops the old rows.
	if err := store.ReplaceCorpus(ctx, sources[1:], []*models.Passage{{Ordinal: 0, SourceID: "src:b", Content: "x"}}); err != nil {
		t.Fatal(err)
	}
	m, _ = store.CountPassages(ctx)
	if m != 1 {
		t.Errorf("after replace: %d passages, want 1", m)
	}
	if _, err := store.GetPassage(ctx, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPassage(2) err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_ReplaceCorpusRollsBack(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	src := []*models.Source{{ID: "src:a", Path: "/a", ModelID: "m", ChunkCount: 1}}
	if err := store.ReplaceCorpus(ctx, src, []*models.Passage{{Ordinal: 0, SourceID: "src:a", Content: "kept"}}); err != nil {
		t.Fatal(err)
	}

	dup := []*models.Passage{{Ordinal: 0, SourceID: "src:a", Content: "x"}, {Ordinal: 0, SourceID: "src:a", Content: "y"}}
	if err := store.ReplaceCorpus(ctx, src, dup); err == nil {
		t.Fatal("expected error for duplicate ordinal")
	}
	p, err := store.GetPassage(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.Content != "kept" {
		t.Errorf("failed replace should roll back, got %q", p.Content)
	}
}

func TestSQLiteStorage_Turns(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	turns := []*models.Turn{
		{SessionID: "s1", Kind: models.TurnConsult, Query: "I have a headache", Response: "Rest and hydrate."},
		{SessionID: "s2", Kind: models.TurnConsult, Query: "Rash on arm", Response: "Could be eczema."},
		{SessionID: "s1", Kind: models.TurnFollowUp, Query: "It got worse", Response: "See a doctor."},
	}
	for _, turn := range turns {
		if err := store.AppendTurn(ctx, turn); err != nil {
			t.Fatal(err)
		}
		if turn.ID == 0 || turn.CreatedAt.IsZero() {
			t.Errorf("turn not populated: %+v", turn)
		}
	}

	got, err := store.ListTurns(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Query != "I have a headache" || got[1].Kind != models.TurnFollowUp {
		t.Errorf("turns = %+v", got)
	}

	if err := store.DeleteTurns(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	got, _ = store.ListTurns(ctx, "s1")
	if len(got) != 0 {
		t.Errorf("after delete: %d turns", len(got))
	}
	other, _ := store.ListTurns(ctx, "s2")
	if len(other) != 1 {
		t.Errorf("other session affected: %d turns", len(other))
	}
}
