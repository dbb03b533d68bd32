package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/siddhikamalkar/AI-Medibot/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		title TEXT,
		chunk_count INTEGER NOT NULL,
		ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		model_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		ordinal INTEGER PRIMARY KEY,
		source_id TEXT NOT NULL,
		content TEXT NOT NULL,
		FOREIGN KEY (source_id) REFERENCES sources(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_source_id ON chunks(source_id);

	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		query TEXT NOT NULL,
		response TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceCorpus deletes every source and chunk row and inserts the new ones.
func (s *SQLiteStorage) ReplaceCorpus(ctx context.Context, sources []*models.Source, passages []*models.Passage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sources`); err != nil {
		return fmt.Errorf("failed to clear sources: %w", err)
	}

	srcStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sources (id, path, title, chunk_count, ingested_at, model_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer srcStmt.Close()
	now := time.Now()
	for _, src := range sources {
		if src.IngestedAt.IsZero() {
			src.IngestedAt = now
		}
		if _, err := srcStmt.ExecContext(ctx, src.ID, src.Path, src.Title, src.ChunkCount, src.IngestedAt, src.ModelID); err != nil {
			return fmt.Errorf("failed to insert source %s: %w", src.Path, err)
		}
	}

	chunkStmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (ordinal, source_id, content) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer chunkStmt.Close()
	for _, p := range passages {
		if _, err := chunkStmt.ExecContext(ctx, p.Ordinal, p.SourceID, p.Content); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", p.Ordinal, err)
		}
	}
	return tx.Commit()
}

// ListSources returns all sources ordered by path.
func (s *SQLiteStorage) ListSources(ctx context.Context) ([]*models.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, title, chunk_count, ingested_at, model_id FROM sources ORDER BY path`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*models.Source
	for rows.Next() {
		var src models.Source
		if err := rows.Scan(&src.ID, &src.Path, &src.Title, &src.ChunkCount, &src.IngestedAt, &src.ModelID); err != nil {
			return nil, err
		}
		sources = append(sources, &src)
	}
	return sources, rows.Err()
}

// GetPassage returns the chunk with the given ordinal.
func (s *SQLiteStorage) GetPassage(ctx context.Context, ordinal int) (*models.Passage, error) {
	var p models.Passage
	err := s.db.QueryRowContext(ctx,
		`SELECT ordinal, source_id, content FROM chunks WHERE ordinal = ?`, ordinal,
	).Scan(&p.Ordinal, &p.SourceID, &p.Content)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk %d: %w", ordinal, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountSources returns the number of sources.
func (s *SQLiteStorage) CountSources(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&count)
	return count, err
}

// CountPassages returns the number of chunks.
func (s *SQLiteStorage) CountPassages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// AppendTurn inserts a turn and sets its ID and CreatedAt.
func (s *SQLiteStorage) AppendTurn(ctx context.Context, turn *models.Turn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, kind, query, response, created_at) VALUES (?, ?, ?, ?, ?)`,
		turn.SessionID, turn.Kind, turn.Query, turn.Response, turn.CreatedAt,
	)
	if err != nil {
		return err
	}
	turn.ID, _ = result.LastInsertId()
	return nil
}

// ListTurns returns the turns of a session in insertion order.
func (s *SQLiteStorage) ListTurns(ctx context.Context, sessionID string) ([]*models.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, kind, query, response, created_at FROM turns WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*models.Turn
	for rows.Next() {
		var t models.Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Kind, &t.Query, &t.Response, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, &t)
	}
	return turns, rows.Err()
}

// DeleteTurns removes every turn of a session.
func (s *SQLiteStorage) DeleteTurns(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID)
	return err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
