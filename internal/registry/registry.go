// Package registry tracks which live connection belongs to which game, as
// which user and in which role.
package registry

import (
	"errors"
	"sort"
	"sync"
)

type Role string

const (
	RolePlayerWhite Role = "PLAYER_WHITE"
	RolePlayerBlack Role = "PLAYER_BLACK"
	RoleObserver    Role = "OBSERVER"
)

func (r Role) IsPlayer() bool { return r == RolePlayerWhite || r == RolePlayerBlack }

var ErrAlreadyRegistered = errors.New("connection already registered")

type Entry struct {
	ConnID   string
	Username string
	GameID   string
	Role     Role
}

type Registry struct {
	mu    sync.RWMutex
	conns map[string]Entry
	games map[string]map[string]struct{} // gameID -> connIDs
}

func New() *Registry {
	return &Registry{
		conns: make(map[string]Entry),
		games: make(map[string]map[string]struct{}),
	}
}

// Add registers a connection. A connection belongs to at most one game.
func (r *Registry) Add(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[e.ConnID]; ok {
		return ErrAlreadyRegistered
	}
	r.conns[e.ConnID] = e
	set, ok := r.games[e.GameID]
	if !ok {
		set = make(map[string]struct{})
		r.games[e.GameID] = set
	}
	set[e.ConnID] = struct{}{}
	return nil
}

func (r *Registry) Remove(connID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[connID]
	if !ok {
		return Entry{}, false
	}
	delete(r.conns, connID)
	if set := r.games[e.GameID]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.games, e.GameID)
		}
	}
	return e, true
}

func (r *Registry) Get(connID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	return e, ok
}

// InGame returns the game's entries ordered by connection ID.
func (r *Registry) InGame(gameID string) []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.games[gameID]))
	for id := range r.games[gameID] {
		out = append(out, r.conns[id])
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ConnID < out[j].ConnID })
	return out
}

func (r *Registry) Count(gameID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games[gameID])
}

func (r *Registry) Games() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
