package game

import (
	"sort"
	"sync"

	"github.com/hailam/chessnet/internal/errs"
	"github.com/hailam/chessnet/internal/util"
)

// MaxListPageSize caps the number of games returned per listing page.
const MaxListPageSize = 50

// Manager owns all games on the server. Safe for concurrent use.
type Manager struct {
	mu    sync.RWMutex
	games map[string]*Game

	clock util.Clock
	ids   util.IDSource
}

// NewManager creates an empty game manager.
func NewManager(clock util.Clock, ids util.IDSource) *Manager {
	return &Manager{
		games: make(map[string]*Game),
		clock: clock,
		ids:   ids,
	}
}

// Create starts a new game and returns it.
func (m *Manager) Create(rated bool, timeControl string) *Game {
	g := New(m.ids.NewID(), rated, timeControl, m.clock.Now())

	m.mu.Lock()
	m.games[g.ID] = g
	m.mu.Unlock()

	return g
}

// Get returns the game with the given ID.
func (m *Manager) Get(gameID string) (*Game, error) {
	m.mu.RLock()
	g, ok := m.games[gameID]
	m.mu.RUnlock()

	if !ok {
		return nil, errs.GameNotFound(gameID)
	}
	return g, nil
}

// Remove deletes a game from the manager.
func (m *Manager) Remove(gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[gameID]; !ok {
		return errs.GameNotFound(gameID)
	}
	delete(m.games, gameID)
	return nil
}

// Count returns the number of games, split by status.
func (m *Manager) Count() (total, active, waiting int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total = len(m.games)
	for _, g := range m.games {
		switch {
		case g.IsFinished():
		case g.Snapshot().Status == StatusActive:
			active++
		default:
			waiting++
		}
	}
	return total, active, waiting
}

// ListFilter selects which games a listing returns.
type ListFilter struct {
	Status Status // empty matches all
	Player string // player ID, empty matches all
	Offset int
	Limit  int // capped at MaxListPageSize; 0 means the cap
}

// List returns snapshots of matching games ordered by creation time,
// newest first, plus the total match count before paging.
func (m *Manager) List(f ListFilter) ([]Info, int) {
	m.mu.RLock()
	matches := make([]Info, 0, len(m.games))
	for _, g := range m.games {
		info := g.Snapshot()
		if f.Status != "" && info.Status != f.Status {
			continue
		}
		if f.Player != "" && info.WhitePlayer != f.Player && info.BlackPlayer != f.Player {
			continue
		}
		matches = append(matches, info)
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt != matches[j].CreatedAt {
			return matches[i].CreatedAt > matches[j].CreatedAt
		}
		return matches[i].ID < matches[j].ID
	})

	total := len(matches)

	limit := f.Limit
	if limit <= 0 || limit > MaxListPageSize {
		limit = MaxListPageSize
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Info{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matches[offset:end], total
}

// GamesForPlayer returns the games a player is seated in.
func (m *Manager) GamesForPlayer(playerID string) []*Game {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Game
	for _, g := range m.games {
		w, b := g.Players()
		if w == playerID || b == playerID {
			out = append(out, g)
		}
	}
	return out
}

// RemoveFinishedBefore deletes finished games whose last activity is
// older than the cutoff timestamp. Returns the number removed.
func (m *Manager) RemoveFinishedBefore(cutoff uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, g := range m.games {
		g.mu.Lock()
		stale := g.Status == StatusFinished && g.LastMoveAt < cutoff
		g.mu.Unlock()
		if stale {
			delete(m.games, id)
			removed++
		}
	}
	return removed
}
