// Package memory provides an in-memory CanvasStore, mostly for tests and
// single-process use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ericmjl/canvas-chat-sub001/store"
)

// MemoryCanvasStore implements store.CanvasStore in process memory.
type MemoryCanvasStore struct {
	mu       sync.RWMutex
	canvases map[string]*store.Canvas
}

// NewMemoryCanvasStore creates an empty in-memory canvas store.
func NewMemoryCanvasStore() *MemoryCanvasStore {
	return &MemoryCanvasStore{
		canvases: make(map[string]*store.Canvas),
	}
}

// Save stores a canvas, replacing any existing record with the same ID.
func (s *MemoryCanvasStore) Save(_ context.Context, canvas *store.Canvas) error {
	if canvas == nil || canvas.ID == "" {
		return fmt.Errorf("canvas must have an ID")
	}
	cp := *canvas
	s.mu.Lock()
	s.canvases[cp.ID] = &cp
	s.mu.Unlock()
	return nil
}

// Load retrieves a canvas by ID.
func (s *MemoryCanvasStore) Load(_ context.Context, canvasID string) (*store.Canvas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	canvas, ok := s.canvases[canvasID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrCanvasNotFound, canvasID)
	}
	cp := *canvas
	return &cp, nil
}

// List returns all stored canvases ordered by most recently updated.
func (s *MemoryCanvasStore) List(_ context.Context) ([]*store.Canvas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*store.Canvas, 0, len(s.canvases))
	for _, canvas := range s.canvases {
		cp := *canvas
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes a canvas. Deleting an unknown ID is not an error.
func (s *MemoryCanvasStore) Delete(_ context.Context, canvasID string) error {
	s.mu.Lock()
	delete(s.canvases, canvasID)
	s.mu.Unlock()
	return nil
}

// Clear removes all canvases.
func (s *MemoryCanvasStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.canvases = make(map[string]*store.Canvas)
	s.mu.Unlock()
	return nil
}
