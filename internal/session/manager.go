package session

import (
	"sync"

	"github.com/hailam/chessnet/internal/errs"
	"github.com/hailam/chessnet/internal/util"
)

// Per-IP connection caps.
const (
	MaxAuthSessionsPerIP  = 5
	MaxTotalSessionsPerIP = 10
)

// Manager owns all sessions. Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session // by session ID
	byPlayer map[string]string   // player ID -> session ID

	timeoutSecs uint64
	clock       util.Clock
	ids         util.IDSource
}

// NewManager creates a session manager with the given idle timeout.
func NewManager(timeoutSecs uint64, clock util.Clock, ids util.IDSource) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		byPlayer:    make(map[string]string),
		timeoutSecs: timeoutSecs,
		clock:       clock,
		ids:         ids,
	}
}

// Create opens a guest session for a player. A player reconnecting with
// an existing session adopts it instead of opening a second one. New
// sessions are rejected when the remote IP holds too many in total;
// the tighter authenticated cap is enforced by Authenticate.
func (m *Manager) Create(playerID, remoteIP string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()

	if sid, ok := m.byPlayer[playerID]; ok {
		if s, ok := m.sessions[sid]; ok {
			s.Touch(now)
			return s.clone(), nil
		}
		delete(m.byPlayer, playerID)
	}

	total := 0
	for _, s := range m.sessions {
		if s.RemoteIP == remoteIP {
			total++
		}
	}
	if total >= MaxTotalSessionsPerIP {
		return nil, errs.RateLimitExceeded(remoteIP)
	}

	s := &Session{
		ID:           m.ids.NewID(),
		PlayerID:     playerID,
		Permissions:  GuestPermissions(),
		Bucket:       NewTokenBucket(GuestBucketCapacity, GuestRefillPerSec, now),
		RemoteIP:     remoteIP,
		CreatedAt:    now,
		LastActivity: now,
	}

	m.sessions[s.ID] = s
	m.byPlayer[playerID] = s.ID
	return s.clone(), nil
}

// Get returns a snapshot of the session with the given ID. Mutations
// go through Manager methods.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, errs.AuthenticationFailed()
	}
	return s.clone(), nil
}

// GetByPlayer returns a snapshot of the session owned by a player.
func (m *Manager) GetByPlayer(playerID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sid, ok := m.byPlayer[playerID]
	if !ok {
		return nil, errs.AuthenticationFailed()
	}
	return m.sessions[sid].clone(), nil
}

// Authenticate upgrades a guest session: default permissions and the
// larger authenticated rate budget. The per-IP authenticated cap is
// enforced here; re-authenticating an upgraded session is a no-op.
func (m *Manager) Authenticate(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return errs.AuthenticationFailed()
	}
	if s.Authenticated {
		return nil
	}

	auth := 0
	for _, other := range m.sessions {
		if other.Authenticated && other.RemoteIP == s.RemoteIP {
			auth++
		}
	}
	if auth >= MaxAuthSessionsPerIP {
		return errs.RateLimitExceeded(s.RemoteIP)
	}

	now := m.clock.Now()
	s.Authenticated = true
	s.Permissions = DefaultPermissions()
	s.Bucket = NewTokenBucket(AuthBucketCapacity, AuthRefillPerSec, now)
	s.Touch(now)
	return nil
}

// SetPermissions replaces a session's permissions, used for admin,
// moderator and ban changes.
func (m *Manager) SetPermissions(sessionID string, p Permissions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return errs.AuthenticationFailed()
	}
	s.Permissions = p
	return nil
}

// Consume spends rate-limit tokens for one inbound message and
// refreshes the idle timer.
func (m *Manager) Consume(sessionID string, cost float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return errs.AuthenticationFailed()
	}

	now := m.clock.Now()
	if !s.Bucket.Allow(cost, now) {
		return errs.RateLimitExceeded(s.PlayerID)
	}
	s.Touch(now)
	return nil
}

// CanPerformAction checks a permission-gated action for a session.
func (m *Manager) CanPerformAction(sessionID string, a Action) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return errs.AuthenticationFailed()
	}
	if !s.Permissions.Allows(a) {
		return errs.InsufficientPermissions()
	}
	return nil
}

// Remove closes a session.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		delete(m.byPlayer, s.PlayerID)
		delete(m.sessions, sessionID)
	}
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupExpired drops sessions idle past the timeout and returns the
// player IDs they belonged to.
func (m *Manager) CleanupExpired() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	var removed []string
	for id, s := range m.sessions {
		if s.ExpiredAt(now, m.timeoutSecs) {
			delete(m.byPlayer, s.PlayerID)
			delete(m.sessions, id)
			removed = append(removed, s.PlayerID)
		}
	}
	return removed
}
