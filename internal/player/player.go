// Package player tracks connected players, their ratings and statistics,
// and matchmaking between them.
package player

import "math"

// Status is a player's presence state.
type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusInGame  Status = "in_game"
	StatusOffline Status = "offline"
)

// DefaultRating is the rating assigned to new players.
const DefaultRating = 1200

// MaxConcurrentGames caps how many games one player may be seated in.
const MaxConcurrentGames = 10

// MaxAvailableGames is the threshold below which a player is offered
// for matchmaking.
const MaxAvailableGames = 5

// Stats aggregates a player's results.
type Stats struct {
	GamesPlayed   uint32 `json:"games_played" toml:"games_played"`
	Wins          uint32 `json:"wins" toml:"wins"`
	Losses        uint32 `json:"losses" toml:"losses"`
	Draws         uint32 `json:"draws" toml:"draws"`
	Rating        uint32 `json:"rating" toml:"rating"`
	PeakRating    uint32 `json:"peak_rating" toml:"peak_rating"`
	TotalMoves    uint64 `json:"total_moves" toml:"total_moves"`
	TotalPlaySecs uint64 `json:"total_play_secs" toml:"total_play_secs"`
	// ShortestGame is the fewest moves in any completed game,
	// MaxUint32 until the first game finishes.
	ShortestGame uint32 `json:"shortest_game" toml:"shortest_game"`
	LongestGame  uint32 `json:"longest_game" toml:"longest_game"`
}

// NewStats returns stats for a fresh player.
func NewStats() Stats {
	return Stats{
		Rating:       DefaultRating,
		PeakRating:   DefaultRating,
		ShortestGame: math.MaxUint32,
	}
}

// WinRate returns the fraction of games won, 0 when no games played.
func (s Stats) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.GamesPlayed)
}

// RecordGame folds one finished game into the stats. result is +1 for
// a win, 0 for a draw, -1 for a loss.
func (s *Stats) RecordGame(result int, moves uint32, durationSecs uint64) {
	s.GamesPlayed++
	switch {
	case result > 0:
		s.Wins++
	case result < 0:
		s.Losses++
	default:
		s.Draws++
	}
	s.TotalMoves += uint64(moves)
	s.TotalPlaySecs += durationSecs
	if moves < s.ShortestGame {
		s.ShortestGame = moves
	}
	if moves > s.LongestGame {
		s.LongestGame = moves
	}
}

// Preferences holds per-player settings.
type Preferences struct {
	PreferredTimeControl string `json:"preferred_time_control" toml:"preferred_time_control"`
	AutoAcceptRematches  bool   `json:"auto_accept_rematches" toml:"auto_accept_rematches"`
	AllowSpectators      bool   `json:"allow_spectators" toml:"allow_spectators"`
	NotificationsEnabled bool   `json:"notifications_enabled" toml:"notifications_enabled"`
	ShowLegalMoves       bool   `json:"show_legal_moves" toml:"show_legal_moves"`
}

// DefaultPreferences returns the settings for new players.
func DefaultPreferences() Preferences {
	return Preferences{
		AllowSpectators:      true,
		NotificationsEnabled: true,
		ShowLegalMoves:       true,
	}
}

// Player is a registered participant. The Manager hands out detached
// copies; the live struct is only touched under the Manager's lock.
type Player struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Status      Status      `json:"status"`
	Stats       Stats       `json:"stats"`
	Preferences Preferences `json:"preferences"`

	// CurrentGames holds the IDs of games the player is seated in.
	CurrentGames []string `json:"current_games,omitempty"`

	Guest        bool   `json:"guest"`
	ConnectedAt  uint64 `json:"connected_at"`
	LastActiveAt uint64 `json:"last_active_at"`
}

// clone returns a detached copy safe to read outside the manager lock.
func (p *Player) clone() *Player {
	cp := *p
	cp.CurrentGames = append([]string(nil), p.CurrentGames...)
	return &cp
}

// InGame reports whether the player is seated in the given game.
func (p *Player) InGame(gameID string) bool {
	for _, id := range p.CurrentGames {
		if id == gameID {
			return true
		}
	}
	return false
}

// IsAvailableForGame reports whether matchmaking may seat this player.
func (p *Player) IsAvailableForGame() bool {
	if p.Status != StatusOnline && p.Status != StatusAway {
		return false
	}
	return len(p.CurrentGames) < MaxAvailableGames
}

// DisplayInfo is the public view of a player sent to other clients.
type DisplayInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rating uint32 `json:"rating"`
	Status Status `json:"status"`
	Guest  bool   `json:"guest"`
}

// Display returns the public view of the player.
func (p *Player) Display() DisplayInfo {
	return DisplayInfo{
		ID:     p.ID,
		Name:   p.Name,
		Rating: p.Stats.Rating,
		Status: p.Status,
		Guest:  p.Guest,
	}
}
