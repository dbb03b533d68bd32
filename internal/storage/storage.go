// Package storage persists the corpus catalog and consultation turns.
package storage

import (
	"context"

	"github.com/siddhikamalkar/AI-Medibot/internal/models"
)

// Catalog records which sources an artifact was built from and mirrors its passages.
type Catalog interface {
	// ReplaceCorpus swaps the whole catalog for the given sources and passages in one transaction.
	ReplaceCorpus(ctx context.Context, sources []*models.Source, passages []*models.Passage) error
	ListSources(ctx context.Context) ([]*models.Source, error)
	GetPassage(ctx context.Context, ordinal int) (*models.Passage, error)
	CountSources(ctx context.Context) (int64, error)
	CountPassages(ctx context.Context) (int64, error)
}

// TurnStore persists consultation turns by session.
type TurnStore interface {
	AppendTurn(ctx context.Context, turn *models.Turn) error
	ListTurns(ctx context.Context, sessionID string) ([]*models.Turn, error)
	DeleteTurns(ctx context.Context, sessionID string) error
}

// Storage is the SQLite-backed combination of Catalog and TurnStore.
type Storage interface {
	Catalog
	TurnStore
	Close() error
}
