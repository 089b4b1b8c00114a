package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryRepository is an in-process Repository for development and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	games map[string]*GameRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{games: make(map[string]*GameRecord)}
}

func (m *MemoryRepository) Load(ctx context.Context, gameID string) (*GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.games[strings.TrimSpace(gameID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return rec.Clone(), nil
}

func (m *MemoryRepository) Create(ctx context.Context, rec *GameRecord) error {
	if rec == nil || strings.TrimSpace(rec.GameID) == "" {
		return fmt.Errorf("game id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.games[rec.GameID]; exists {
		return fmt.Errorf("%w: %s", ErrGameExists, rec.GameID)
	}
	rec.Version = 1
	m.games[rec.GameID] = rec.Clone()
	return nil
}

func (m *MemoryRepository) Save(ctx context.Context, rec *GameRecord) error {
	if rec == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.games[rec.GameID]; ok && cur.Version > rec.Version {
		return fmt.Errorf("%w: %s stored=%d have=%d", ErrStaleRecord, rec.GameID, cur.Version, rec.Version)
	}
	rec.Version++
	m.games[rec.GameID] = rec.Clone()
	return nil
}
