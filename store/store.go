package store

import (
	"context"
	"errors"
	"time"

	"github.com/ericmjl/canvas-chat-sub001/graph"
)

// ErrCanvasNotFound is returned when loading a canvas ID with no record.
var ErrCanvasNotFound = errors.New("canvas not found")

// Canvas is a persisted canvas: the full graph snapshot plus metadata.
type Canvas struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Graph     graph.Snapshot `json:"graph"`
	UpdatedAt time.Time      `json:"updated_at"`
	Version   int            `json:"version"`
}

// CanvasStore defines the interface for canvas persistence
type CanvasStore interface {
	// Save stores a canvas, replacing any existing record with the same ID
	Save(ctx context.Context, canvas *Canvas) error

	// Load retrieves a canvas by ID
	Load(ctx context.Context, canvasID string) (*Canvas, error)

	// List returns all stored canvases
	List(ctx context.Context) ([]*Canvas, error)

	// Delete removes a canvas
	Delete(ctx context.Context, canvasID string) error

	// Clear removes all canvases
	Clear(ctx context.Context) error
}
