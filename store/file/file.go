// Package file provides a CanvasStore backed by one JSON file per canvas
// in a directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ericmjl/canvas-chat-sub001/store"
)

// FileCanvasStore implements store.CanvasStore on the local filesystem.
// Each canvas is written to <dir>/<id>.json via a rename so readers never
// see a half-written file.
type FileCanvasStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileCanvasStore creates the directory if needed and returns a store
// over it.
func NewFileCanvasStore(dir string) (*FileCanvasStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create canvas directory: %w", err)
	}
	return &FileCanvasStore{dir: dir}, nil
}

func (s *FileCanvasStore) path(canvasID string) string {
	return filepath.Join(s.dir, canvasID+".json")
}

// Save stores a canvas, replacing any existing record with the same ID.
func (s *FileCanvasStore) Save(_ context.Context, canvas *store.Canvas) error {
	if canvas == nil || canvas.ID == "" {
		return fmt.Errorf("canvas must have an ID")
	}
	data, err := json.MarshalIndent(canvas, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal canvas: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := s.path(canvas.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write canvas: %w", err)
	}
	if err := os.Rename(tmp, s.path(canvas.ID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit canvas: %w", err)
	}
	return nil
}

// Load retrieves a canvas by ID.
func (s *FileCanvasStore) Load(_ context.Context, canvasID string) (*store.Canvas, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path(canvasID))
	s.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrCanvasNotFound, canvasID)
		}
		return nil, fmt.Errorf("failed to read canvas: %w", err)
	}

	var canvas store.Canvas
	if err := json.Unmarshal(data, &canvas); err != nil {
		return nil, fmt.Errorf("failed to unmarshal canvas: %w", err)
	}
	return &canvas, nil
}

// List returns all stored canvases ordered by most recently updated.
func (s *FileCanvasStore) List(ctx context.Context) ([]*store.Canvas, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read canvas directory: %w", err)
	}

	var canvases []*store.Canvas
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		canvas, err := s.Load(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		canvases = append(canvases, canvas)
	}

	sort.Slice(canvases, func(i, j int) bool {
		if !canvases[i].UpdatedAt.Equal(canvases[j].UpdatedAt) {
			return canvases[i].UpdatedAt.After(canvases[j].UpdatedAt)
		}
		return canvases[i].ID < canvases[j].ID
	})
	return canvases, nil
}

// Delete removes a canvas. Deleting an unknown ID is not an error.
func (s *FileCanvasStore) Delete(_ context.Context, canvasID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(canvasID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete canvas: %w", err)
	}
	return nil
}

// Clear removes all canvases.
func (s *FileCanvasStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read canvas directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to clear canvases: %w", err)
		}
	}
	return nil
}
