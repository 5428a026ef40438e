package server

import "sync"

// Statistics aggregates server-wide counters. Safe for concurrent use.
type Statistics struct {
	mu sync.Mutex

	StartTime                 uint64
	TotalConnections          uint64
	PeakConcurrentConnections int
	TotalGamesCreated         uint64
	TotalMovesPlayed          uint64
	TotalMessagesProcessed    uint64
}

// NewStatistics starts the counters at the given time.
func NewStatistics(now uint64) *Statistics {
	return &Statistics{StartTime: now}
}

// ConnectionOpened counts a new connection against the totals and the
// concurrent peak.
func (s *Statistics) ConnectionOpened(concurrent int) {
	s.mu.Lock()
	s.TotalConnections++
	if concurrent > s.PeakConcurrentConnections {
		s.PeakConcurrentConnections = concurrent
	}
	s.mu.Unlock()
}

// MessageProcessed counts one handled inbound message.
func (s *Statistics) MessageProcessed() {
	s.mu.Lock()
	s.TotalMessagesProcessed++
	s.mu.Unlock()
}

// GameCreated counts one created game.
func (s *Statistics) GameCreated() {
	s.mu.Lock()
	s.TotalGamesCreated++
	s.mu.Unlock()
}

// MovePlayed counts one accepted move.
func (s *Statistics) MovePlayed() {
	s.mu.Lock()
	s.TotalMovesPlayed++
	s.mu.Unlock()
}

// Snapshot returns a copy of the counters with uptime filled in.
func (s *Statistics) Snapshot(now uint64) StatisticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StatisticsSnapshot{
		StartTime:                 s.StartTime,
		UptimeSecs:                now - s.StartTime,
		TotalConnections:          s.TotalConnections,
		PeakConcurrentConnections: s.PeakConcurrentConnections,
		TotalGamesCreated:         s.TotalGamesCreated,
		TotalMovesPlayed:          s.TotalMovesPlayed,
		TotalMessagesProcessed:    s.TotalMessagesProcessed,
	}
}

// StatisticsSnapshot is an immutable view of the counters.
type StatisticsSnapshot struct {
	StartTime                 uint64 `json:"start_time"`
	UptimeSecs                uint64 `json:"uptime_seconds"`
	TotalConnections          uint64 `json:"total_connections"`
	PeakConcurrentConnections int    `json:"peak_concurrent_connections"`
	TotalGamesCreated         uint64 `json:"total_games_created"`
	TotalMovesPlayed          uint64 `json:"total_moves_played"`
	TotalMessagesProcessed    uint64 `json:"total_messages_processed"`

	// Connected players bucketed by rating band floor (width 200).
	RatingDistribution map[uint32]int `json:"rating_distribution,omitempty"`
}
