// Package session tracks client sessions: authentication state,
// permissions, rate limiting and idle expiry.
package session

// Permissions controls what a session's player may do.
type Permissions struct {
	CanCreateGames bool `json:"can_create_games"`
	CanJoinGames   bool `json:"can_join_games"`
	CanSpectate    bool `json:"can_spectate"`
	CanChat        bool `json:"can_chat"`
	IsAdmin        bool `json:"is_admin"`
	IsModerator    bool `json:"is_moderator"`
}

// DefaultPermissions are for authenticated players.
func DefaultPermissions() Permissions {
	return Permissions{
		CanCreateGames: true,
		CanJoinGames:   true,
		CanSpectate:    true,
		CanChat:        true,
	}
}

// GuestPermissions allow joining and watching but not creating games
// or chatting.
func GuestPermissions() Permissions {
	return Permissions{
		CanJoinGames: true,
		CanSpectate:  true,
	}
}

// AdminPermissions grant everything.
func AdminPermissions() Permissions {
	return Permissions{
		CanCreateGames: true,
		CanJoinGames:   true,
		CanSpectate:    true,
		CanChat:        true,
		IsAdmin:        true,
		IsModerator:    true,
	}
}

// ModeratorPermissions are default permissions plus moderation.
func ModeratorPermissions() Permissions {
	p := DefaultPermissions()
	p.IsModerator = true
	return p
}

// BannedPermissions deny everything.
func BannedPermissions() Permissions {
	return Permissions{}
}

// Action names a permission-gated operation.
type Action string

const (
	ActionCreateGame Action = "create_game"
	ActionJoinGame   Action = "join_game"
	ActionSpectate   Action = "spectate"
	ActionChat       Action = "chat"
	ActionModerate   Action = "moderate"
	ActionAdmin      Action = "admin"
)

// Allows reports whether the permissions cover the action.
func (p Permissions) Allows(a Action) bool {
	switch a {
	case ActionCreateGame:
		return p.CanCreateGames
	case ActionJoinGame:
		return p.CanJoinGames
	case ActionSpectate:
		return p.CanSpectate
	case ActionChat:
		return p.CanChat
	case ActionModerate:
		return p.IsModerator || p.IsAdmin
	case ActionAdmin:
		return p.IsAdmin
	}
	return false
}

// Rate limiter defaults. Authenticated sessions get a larger burst and
// a faster refill than guests.
const (
	AuthBucketCapacity  = 60.0
	AuthRefillPerSec    = 1.0
	GuestBucketCapacity = 30.0
	GuestRefillPerSec   = 0.5
)

// TokenBucket is a refilling message budget.
type TokenBucket struct {
	Tokens     float64
	Capacity   float64
	RefillRate float64 // tokens per second
	LastRefill uint64  // unix seconds
}

// NewTokenBucket starts a full bucket.
func NewTokenBucket(capacity, refillRate float64, now uint64) TokenBucket {
	return TokenBucket{
		Tokens:     capacity,
		Capacity:   capacity,
		RefillRate: refillRate,
		LastRefill: now,
	}
}

// Allow refills for elapsed time and spends cost tokens if available.
func (b *TokenBucket) Allow(cost float64, now uint64) bool {
	if now > b.LastRefill {
		b.Tokens += float64(now-b.LastRefill) * b.RefillRate
		if b.Tokens > b.Capacity {
			b.Tokens = b.Capacity
		}
		b.LastRefill = now
	}

	if b.Tokens < cost {
		return false
	}
	b.Tokens -= cost
	return true
}

// Session is one client's server-side state.
type Session struct {
	ID       string
	PlayerID string

	Authenticated bool
	Permissions   Permissions
	Bucket        TokenBucket

	RemoteIP     string
	CreatedAt    uint64
	LastActivity uint64
}

// clone returns a detached copy safe to read outside the manager lock.
func (s *Session) clone() *Session {
	cp := *s
	return &cp
}

// Touch refreshes the idle timer.
func (s *Session) Touch(now uint64) {
	s.LastActivity = now
}

// ExpiredAt reports whether the session has been idle past the timeout.
func (s *Session) ExpiredAt(now uint64, timeoutSecs uint64) bool {
	return now-s.LastActivity > timeoutSecs
}
