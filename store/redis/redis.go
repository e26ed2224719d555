package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ericmjl/canvas-chat-sub001/store"
)

// RedisCanvasStore implements store.CanvasStore using Redis
type RedisCanvasStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOptions configuration for Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "canvaschat:"
	TTL      time.Duration // Expiration for canvases, default 0 (no expiration)
}

// NewRedisCanvasStore creates a new Redis canvas store
func NewRedisCanvasStore(opts RedisOptions) *RedisCanvasStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "canvaschat:"
	}

	return &RedisCanvasStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *RedisCanvasStore) canvasKey(id string) string {
	return fmt.Sprintf("%scanvas:%s", s.prefix, id)
}

func (s *RedisCanvasStore) indexKey() string {
	return s.prefix + "canvases"
}

// Save stores a canvas and indexes its ID
func (s *RedisCanvasStore) Save(ctx context.Context, canvas *store.Canvas) error {
	data, err := json.Marshal(canvas)
	if err != nil {
		return fmt.Errorf("failed to marshal canvas: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.canvasKey(canvas.ID), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), canvas.ID)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.indexKey(), s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save canvas to redis: %w", err)
	}
	return nil
}

// Load retrieves a canvas by ID
func (s *RedisCanvasStore) Load(ctx context.Context, canvasID string) (*store.Canvas, error) {
	data, err := s.client.Get(ctx, s.canvasKey(canvasID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", store.ErrCanvasNotFound, canvasID)
		}
		return nil, fmt.Errorf("failed to load canvas from redis: %w", err)
	}

	var canvas store.Canvas
	if err := json.Unmarshal(data, &canvas); err != nil {
		return nil, fmt.Errorf("failed to unmarshal canvas: %w", err)
	}
	return &canvas, nil
}

// List returns all stored canvases, most recently updated first. IDs whose
// canvas key has expired are skipped.
func (s *RedisCanvasStore) List(ctx context.Context) ([]*store.Canvas, error) {
	canvasIDs, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list canvases: %w", err)
	}
	if len(canvasIDs) == 0 {
		return []*store.Canvas{}, nil
	}

	keys := make([]string, 0, len(canvasIDs))
	for _, id := range canvasIDs {
		keys = append(keys, s.canvasKey(id))
	}

	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch canvases: %w", err)
	}

	var canvases []*store.Canvas
	for _, result := range results {
		if result == nil {
			continue
		}
		strData, ok := result.(string)
		if !ok {
			continue
		}
		var canvas store.Canvas
		if err := json.Unmarshal([]byte(strData), &canvas); err != nil {
			continue
		}
		canvases = append(canvases, &canvas)
	}

	sort.Slice(canvases, func(i, j int) bool {
		if !canvases[i].UpdatedAt.Equal(canvases[j].UpdatedAt) {
			return canvases[i].UpdatedAt.After(canvases[j].UpdatedAt)
		}
		return canvases[i].ID < canvases[j].ID
	})
	return canvases, nil
}

// Delete removes a canvas and its index entry
func (s *RedisCanvasStore) Delete(ctx context.Context, canvasID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.canvasKey(canvasID))
	pipe.SRem(ctx, s.indexKey(), canvasID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete canvas: %w", err)
	}
	return nil
}

// Clear removes all canvases and the index
func (s *RedisCanvasStore) Clear(ctx context.Context) error {
	canvasIDs, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to get canvases for clearing: %w", err)
	}

	pipe := s.client.Pipeline()
	for _, id := range canvasIDs {
		pipe.Del(ctx, s.canvasKey(id))
	}
	pipe.Del(ctx, s.indexKey())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear canvases: %w", err)
	}
	return nil
}
