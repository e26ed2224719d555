package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ericmjl/canvas-chat-sub001/store"
)

// SqliteCanvasStore implements store.CanvasStore using SQLite
type SqliteCanvasStore struct {
	db        *sql.DB
	tableName string
}

// SqliteOptions configuration for SQLite connection
type SqliteOptions struct {
	Path      string
	TableName string // Default "canvases"
}

// NewSqliteCanvasStore creates a new SQLite canvas store
func NewSqliteCanvasStore(opts SqliteOptions) (*SqliteCanvasStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "canvases"
	}

	s := &SqliteCanvasStore{
		db:        db,
		tableName: tableName,
	}

	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// InitSchema creates the necessary table if it doesn't exist
func (s *SqliteCanvasStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			graph TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			version INTEGER NOT NULL
		);
	`, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SqliteCanvasStore) Close() error {
	return s.db.Close()
}

// Save stores a canvas
func (s *SqliteCanvasStore) Save(ctx context.Context, canvas *store.Canvas) error {
	graphJSON, err := json.Marshal(canvas.Graph)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, title, graph, updated_at, version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			graph = excluded.graph,
			updated_at = excluded.updated_at,
			version = excluded.version
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		canvas.ID,
		canvas.Title,
		string(graphJSON),
		canvas.UpdatedAt,
		canvas.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save canvas: %w", err)
	}
	return nil
}

// Load retrieves a canvas by ID
func (s *SqliteCanvasStore) Load(ctx context.Context, canvasID string) (*store.Canvas, error) {
	query := fmt.Sprintf(`
		SELECT id, title, graph, updated_at, version
		FROM %s
		WHERE id = ?
	`, s.tableName)

	var canvas store.Canvas
	var graphJSON string

	err := s.db.QueryRowContext(ctx, query, canvasID).Scan(
		&canvas.ID,
		&canvas.Title,
		&graphJSON,
		&canvas.UpdatedAt,
		&canvas.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", store.ErrCanvasNotFound, canvasID)
		}
		return nil, fmt.Errorf("failed to load canvas: %w", err)
	}

	if err := json.Unmarshal([]byte(graphJSON), &canvas.Graph); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return &canvas, nil
}

// List returns all stored canvases, most recently updated first
func (s *SqliteCanvasStore) List(ctx context.Context) ([]*store.Canvas, error) {
	query := fmt.Sprintf(`
		SELECT id, title, graph, updated_at, version
		FROM %s
		ORDER BY updated_at DESC, id ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list canvases: %w", err)
	}
	defer rows.Close()

	var canvases []*store.Canvas
	for rows.Next() {
		var canvas store.Canvas
		var graphJSON string

		err := rows.Scan(
			&canvas.ID,
			&canvas.Title,
			&graphJSON,
			&canvas.UpdatedAt,
			&canvas.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan canvas row: %w", err)
		}

		if err := json.Unmarshal([]byte(graphJSON), &canvas.Graph); err != nil {
			return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
		}
		canvases = append(canvases, &canvas)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating canvas rows: %w", err)
	}
	return canvases, nil
}

// Delete removes a canvas
func (s *SqliteCanvasStore) Delete(ctx context.Context, canvasID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, canvasID); err != nil {
		return fmt.Errorf("failed to delete canvas: %w", err)
	}
	return nil
}

// Clear removes all canvases
func (s *SqliteCanvasStore) Clear(ctx context.Context) error {
	query := fmt.Sprintf("DELETE FROM %s", s.tableName)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to clear canvases: %w", err)
	}
	return nil
}
