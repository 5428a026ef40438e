package player

import (
	"sort"
	"strings"
	"sync"

	"github.com/hailam/chessnet/internal/errs"
	"github.com/hailam/chessnet/internal/util"
)

// Manager owns all registered players. Safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	players map[string]*Player // by player ID
	byName  map[string]string  // sanitized name -> player ID

	clock util.Clock
	ids   util.IDSource
}

// NewManager creates an empty player manager.
func NewManager(clock util.Clock, ids util.IDSource) *Manager {
	return &Manager{
		players: make(map[string]*Player),
		byName:  make(map[string]string),
		clock:   clock,
		ids:     ids,
	}
}

// Register creates a player under a sanitized name. Names must be
// non-empty after sanitization and unique among connected players.
func (m *Manager) Register(name string, guest bool) (*Player, error) {
	clean := util.SanitizeName(name)
	if clean == "" {
		return nil, errs.InvalidPlayerName(name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byName[clean]; taken {
		return nil, errs.InvalidPlayerName(clean + " is already taken")
	}

	now := m.clock.Now()
	p := &Player{
		ID:           m.ids.NewID(),
		Name:         clean,
		Status:       StatusOnline,
		Stats:        NewStats(),
		Preferences:  DefaultPreferences(),
		Guest:        guest,
		ConnectedAt:  now,
		LastActiveAt: now,
	}

	m.players[p.ID] = p
	m.byName[clean] = p.ID
	return p.clone(), nil
}

// Get returns a snapshot of the player with the given ID. Mutations go
// through Manager methods.
func (m *Manager) Get(playerID string) (*Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.players[playerID]
	if !ok {
		return nil, errs.PlayerNotFound(playerID)
	}
	return p.clone(), nil
}

// GetByName returns a snapshot of the player registered under the
// sanitized name.
func (m *Manager) GetByName(name string) (*Player, error) {
	clean := util.SanitizeName(name)

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byName[clean]
	if !ok {
		return nil, errs.PlayerNotFound(name)
	}
	return m.players[id].clone(), nil
}

// Remove deletes a player from the manager.
func (m *Manager) Remove(playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[playerID]
	if !ok {
		return errs.PlayerNotFound(playerID)
	}
	delete(m.byName, p.Name)
	delete(m.players, playerID)
	return nil
}

// Count returns the number of registered players.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}

// SetStatus updates a player's presence state.
func (m *Manager) SetStatus(playerID string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[playerID]
	if !ok {
		return errs.PlayerNotFound(playerID)
	}
	p.Status = status
	p.LastActiveAt = m.clock.Now()
	return nil
}

// Touch refreshes a player's last-activity timestamp.
func (m *Manager) Touch(playerID string) {
	m.mu.Lock()
	if p, ok := m.players[playerID]; ok {
		p.LastActiveAt = m.clock.Now()
	}
	m.mu.Unlock()
}

// AddToGame seats a player in a game, enforcing the concurrent game
// cap. A positive limit tightens the package-wide cap.
func (m *Manager) AddToGame(playerID, gameID string, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[playerID]
	if !ok {
		return errs.PlayerNotFound(playerID)
	}
	allowed := MaxConcurrentGames
	if limit > 0 && limit < allowed {
		allowed = limit
	}
	if len(p.CurrentGames) >= allowed {
		return errs.TooManyGames(playerID)
	}
	if p.InGame(gameID) {
		return errs.PlayerAlreadyInGame(playerID)
	}

	p.CurrentGames = append(p.CurrentGames, gameID)
	p.Status = StatusInGame
	p.LastActiveAt = m.clock.Now()
	return nil
}

// RemoveFromGame unseats a player from a game.
func (m *Manager) RemoveFromGame(playerID, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[playerID]
	if !ok {
		return errs.PlayerNotFound(playerID)
	}

	for i, id := range p.CurrentGames {
		if id == gameID {
			p.CurrentGames = append(p.CurrentGames[:i], p.CurrentGames[i+1:]...)
			if len(p.CurrentGames) == 0 {
				p.Status = StatusOnline
			}
			return nil
		}
	}
	return errs.PlayerNotInGame(playerID)
}

// UpdateStats applies a mutation to a player's stats under the lock.
func (m *Manager) UpdateStats(playerID string, fn func(*Stats)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[playerID]
	if !ok {
		return errs.PlayerNotFound(playerID)
	}
	fn(&p.Stats)
	if p.Stats.Rating > p.Stats.PeakRating {
		p.Stats.PeakRating = p.Stats.Rating
	}
	return nil
}

// ClearGuest marks a player as authenticated rather than anonymous.
func (m *Manager) ClearGuest(playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[playerID]
	if !ok {
		return errs.PlayerNotFound(playerID)
	}
	p.Guest = false
	return nil
}

// SetPreferences replaces a player's preferences.
func (m *Manager) SetPreferences(playerID string, prefs Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[playerID]
	if !ok {
		return errs.PlayerNotFound(playerID)
	}
	p.Preferences = prefs
	return nil
}

// SetProfile restores persisted stats and preferences, used when an
// authenticated player reconnects.
func (m *Manager) SetProfile(playerID string, stats Stats, prefs Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[playerID]
	if !ok {
		return errs.PlayerNotFound(playerID)
	}
	p.Stats = stats
	p.Preferences = prefs
	return nil
}

// UpdateRatingsAfterGame adjusts both players' Elo ratings for a rated
// result. winnerID is empty for a draw.
func (m *Manager) UpdateRatingsAfterGame(whiteID, blackID, winnerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	white, ok := m.players[whiteID]
	if !ok {
		return errs.PlayerNotFound(whiteID)
	}
	black, ok := m.players[blackID]
	if !ok {
		return errs.PlayerNotFound(blackID)
	}

	var whiteScore, blackScore float64
	switch winnerID {
	case whiteID:
		whiteScore, blackScore = 1, 0
	case blackID:
		whiteScore, blackScore = 0, 1
	default:
		whiteScore, blackScore = 0.5, 0.5
	}

	wr, br := white.Stats.Rating, black.Stats.Rating
	white.Stats.Rating = UpdateRating(wr, br, whiteScore)
	black.Stats.Rating = UpdateRating(br, wr, blackScore)

	if white.Stats.Rating > white.Stats.PeakRating {
		white.Stats.PeakRating = white.Stats.Rating
	}
	if black.Stats.Rating > black.Stats.PeakRating {
		black.Stats.PeakRating = black.Stats.Rating
	}
	return nil
}

// Search returns players whose name contains the query, case
// insensitive, ordered by name.
func (m *Manager) Search(query string, limit int) []DisplayInfo {
	q := strings.ToLower(query)

	m.mu.RLock()
	var out []DisplayInfo
	for _, p := range m.players {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p.Display())
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// FindMatch returns the available player whose rating is closest to the
// seeker's, within tolerance rating points. Ties break on the lower
// player ID for determinism.
func (m *Manager) FindMatch(seekerID string, tolerance uint32) (*Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seeker, ok := m.players[seekerID]
	if !ok {
		return nil, errs.PlayerNotFound(seekerID)
	}

	var best *Player
	var bestDiff int
	for _, p := range m.players {
		if p.ID == seekerID || !p.IsAvailableForGame() {
			continue
		}
		diff := int(p.Stats.Rating) - int(seeker.Stats.Rating)
		if diff < 0 {
			diff = -diff
		}
		if diff > int(tolerance) {
			continue
		}
		if best == nil || diff < bestDiff || (diff == bestDiff && p.ID < best.ID) {
			best = p
			bestDiff = diff
		}
	}

	if best == nil {
		return nil, errs.PlayerNotFound("no available opponent")
	}
	return best.clone(), nil
}

// RatingDistribution buckets connected players' ratings in bands of
// width 200 keyed by the band floor.
func (m *Manager) RatingDistribution() map[uint32]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dist := make(map[uint32]int)
	for _, p := range m.players {
		dist[p.Stats.Rating/200*200]++
	}
	return dist
}
