package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ericmjl/canvas-chat-sub001/store"
)

// DBPool defines the interface for database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresCanvasStore implements store.CanvasStore using PostgreSQL
type PostgresCanvasStore struct {
	pool      DBPool
	tableName string
}

// PostgresOptions configuration for Postgres connection
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "canvases"
}

// NewPostgresCanvasStore creates a new Postgres canvas store
func NewPostgresCanvasStore(ctx context.Context, opts PostgresOptions) (*PostgresCanvasStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "canvases"
	}

	return &PostgresCanvasStore{
		pool:      pool,
		tableName: tableName,
	}, nil
}

// NewPostgresCanvasStoreWithPool creates a new Postgres canvas store with
// an existing pool. Useful for testing with mocks.
func NewPostgresCanvasStoreWithPool(pool DBPool, tableName string) *PostgresCanvasStore {
	if tableName == "" {
		tableName = "canvases"
	}
	return &PostgresCanvasStore{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the necessary table if it doesn't exist
func (s *PostgresCanvasStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			graph JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			version INTEGER NOT NULL
		);
	`, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresCanvasStore) Close() {
	s.pool.Close()
}

// Save stores a canvas
func (s *PostgresCanvasStore) Save(ctx context.Context, canvas *store.Canvas) error {
	graphJSON, err := json.Marshal(canvas.Graph)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, title, graph, updated_at, version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			graph = EXCLUDED.graph,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		canvas.ID,
		canvas.Title,
		graphJSON,
		canvas.UpdatedAt,
		canvas.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save canvas: %w", err)
	}
	return nil
}

// Load retrieves a canvas by ID
func (s *PostgresCanvasStore) Load(ctx context.Context, canvasID string) (*store.Canvas, error) {
	query := fmt.Sprintf(`
		SELECT id, title, graph, updated_at, version
		FROM %s
		WHERE id = $1
	`, s.tableName)

	var canvas store.Canvas
	var graphJSON []byte

	err := s.pool.QueryRow(ctx, query, canvasID).Scan(
		&canvas.ID,
		&canvas.Title,
		&graphJSON,
		&canvas.UpdatedAt,
		&canvas.Version,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", store.ErrCanvasNotFound, canvasID)
		}
		return nil, fmt.Errorf("failed to load canvas: %w", err)
	}

	if err := json.Unmarshal(graphJSON, &canvas.Graph); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return &canvas, nil
}

// List returns all stored canvases, most recently updated first
func (s *PostgresCanvasStore) List(ctx context.Context) ([]*store.Canvas, error) {
	query := fmt.Sprintf(`
		SELECT id, title, graph, updated_at, version
		FROM %s
		ORDER BY updated_at DESC, id ASC
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list canvases: %w", err)
	}
	defer rows.Close()

	var canvases []*store.Canvas
	for rows.Next() {
		var canvas store.Canvas
		var graphJSON []byte

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

		if err := json.Unmarshal(graphJSON, &canvas.Graph); err != nil {
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
func (s *PostgresCanvasStore) Delete(ctx context.Context, canvasID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, canvasID); err != nil {
		return fmt.Errorf("failed to delete canvas: %w", err)
	}
	return nil
}

// Clear removes all canvases
func (s *PostgresCanvasStore) Clear(ctx context.Context) error {
	query := fmt.Sprintf("DELETE FROM %s", s.tableName)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to clear canvases: %w", err)
	}
	return nil
}
