// Package models defines the records shared by ingestion, storage and the API surfaces.
package models

import "time"

// Source is one ingested input file.
type Source struct {
	ID         string    `json:"id" db:"id"`
	Path       string    `json:"path" db:"path"`
	Title      string    `json:"title" db:"title"`
	ChunkCount int       `json:"chunk_count" db:"chunk_count"`
	ModelID    string    `json:"model_id" db:"model_id"`
	IngestedAt time.Time `json:"ingested_at" db:"ingested_at"`
}

// Passage is a chunk of corpus text identified by its ordinal in the artifact.
type Passage struct {
	Ordinal  int     `json:"ordinal" db:"ordinal"`
	SourceID string  `json:"source_id,omitempty" db:"source_id"`
	Content  string  `json:"content" db:"content"`
	Distance float32 `json:"distance,omitempty" db:"-"`
	Score    float64 `json:"score,omitempty" db:"-"`
}
